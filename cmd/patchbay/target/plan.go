// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/patchbay-dev/patchbay/cmd/patchbay/cli"
	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/schema"
)

type planParams struct {
	cli.GlobalParams
	cli.JSONOutput
	Transport string `flag:"transport" default:"bash" desc:"escaping to show: bash, applescript, or none"`
}

// stagePlan is one stage of "patchbay plan" output.
type stagePlan struct {
	Stage       schema.Stage `json:"stage"`
	Description string       `json:"description"`
	Commands    []string     `json:"commands"`
	Elevated    []bool       `json:"elevated"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
	Failed      bool         `json:"failed,omitempty"`
}

// PlanCommand returns the "plan" command.
func PlanCommand() *cli.Command {
	var params planParams
	plan := &cli.Command{
		Name:    "plan",
		Summary: "Print the commands a run would execute, without running them",
		Description: `Format every stage for a target and print the commands. Nothing
is executed and nothing is written. Stages after the backup are
planned as if the backup already exists.`,
		Usage: "patchbay plan <identifier> [flags]",
		Examples: []cli.Example{
			{Command: "patchbay plan com.example.Editor"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("plan", &params) },
	}
	plan.Run = func(args []string) error {
		if len(args) != 1 {
			return plan.ErrUsage("expected one target identifier, got %d arguments", len(args))
		}
		transport, err := parseTransport(params.Transport)
		if err != nil {
			return plan.ErrUsage("%v", err)
		}

		runtime, err := params.Open(context.Background())
		if err != nil {
			return err
		}
		defer runtime.Close()

		formatter, profile, cleanup, err := runtime.Injector.Formatter(args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		if missing := runtime.Tools.Missing(runtime.Names.Required(profile)); len(missing) > 0 {
			runtime.Logger.Warn("tools missing from storage; a run would be refused", "missing", missing)
		}

		stages := planStages(formatter, transport, command.OSExister)
		if done, err := params.EmitJSON(stages); done {
			return err
		}
		if profile.Caveat != "" {
			fmt.Fprintf(os.Stdout, "Caveat: %s\n\n", profile.Caveat)
		}
		return writePlan(os.Stdout, stages)
	}
	return plan
}

func parseTransport(name string) (command.Transport, error) {
	for _, transport := range []command.Transport{command.TransportBash, command.TransportAppleScript, command.TransportNone} {
		if transport.String() == name {
			return transport, nil
		}
	}
	return 0, fmt.Errorf("unknown transport %q", name)
}

// planStages formats every stage. The backup stage sees the real
// filesystem; later stages see the backup as present whenever the
// executable is, since a run would have created it.
func planStages(formatter *command.Formatter, transport command.Transport, exists command.Exister) []stagePlan {
	paths := formatter.Paths()
	afterBackup := func(path string) bool {
		if path == paths.Backup && exists(paths.Executable) {
			return true
		}
		return exists(path)
	}

	var stages []stagePlan
	for _, stage := range schema.InjectionStages() {
		formatter.Exists = afterBackup
		if stage == schema.StageBackup {
			formatter.Exists = exists
		}
		plan := formatter.Plan(stage, transport)
		entry := stagePlan{
			Stage:       stage,
			Description: stage.Description(),
			Commands:    []string{},
			Elevated:    []bool{},
			Diagnostics: plan.Diagnostics,
			Failed:      plan.Failed(),
		}
		for _, cmd := range plan.Commands {
			entry.Commands = append(entry.Commands, cmd.Text)
			entry.Elevated = append(entry.Elevated, cmd.Elevated)
		}
		stages = append(stages, entry)
	}
	return stages
}

func writePlan(w io.Writer, stages []stagePlan) error {
	for index, stage := range stages {
		if index > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%s)\n", stage.Description, stage.Stage)
		for _, diagnostic := range stage.Diagnostics {
			fmt.Fprintf(w, "  note: %s\n", diagnostic)
		}
		if len(stage.Commands) == 0 {
			fmt.Fprintln(w, "  (nothing to do)")
		}
		for position, text := range stage.Commands {
			cmd := command.Command{Text: text, Elevated: stage.Elevated[position]}
			fmt.Fprintf(w, "  %s\n", cmd)
		}
	}
	return nil
}
