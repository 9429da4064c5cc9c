// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/patchbay-dev/patchbay/cmd/patchbay/cli"
	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/schema"
)

type listParams struct {
	cli.GlobalParams
	cli.JSONOutput
	All bool `flag:"all,a" desc:"include applications without a profile"`
}

// listEntry is one row of "patchbay list".
type listEntry struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Path       string `json:"path"`
	Supported  bool   `json:"supported"`
	Injected   bool   `json:"injected"`
	Caveat     string `json:"caveat,omitempty"`
}

// ListCommand returns the "list" command.
func ListCommand() *cli.Command {
	var params listParams
	return &cli.Command{
		Name:    "list",
		Summary: "List installed applications and their support status",
		Description: `Scan the configured application folders and report every
application the profile file supports, with whether it is already
patched (its executable has a backup beside it).`,
		Usage: "patchbay list [flags]",
		Examples: []cli.Example{
			{Description: "Show supported applications", Command: "patchbay list"},
			{Description: "Show everything as JSON", Command: "patchbay list --all --json"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("list", &params) },
		Run: func(args []string) error {
			runtime, err := params.Open(context.Background())
			if err != nil {
				return err
			}
			defer runtime.Close()

			entries := listEntries(runtime.Targets.Targets(), runtime.Profiles, command.OSExister, params.All)
			if done, err := params.EmitJSON(entries); done {
				return err
			}
			return writeList(os.Stdout, entries)
		},
	}
}

type resolver interface {
	Resolve(target schema.Target) (schema.TargetProfile, bool)
}

func listEntries(targets []schema.Target, profiles resolver, exists command.Exister, all bool) []listEntry {
	var entries []listEntry
	for _, target := range targets {
		profile, supported := profiles.Resolve(target)
		if !supported && !all {
			continue
		}
		entry := listEntry{
			Identifier: target.Identifier,
			Name:       target.Name,
			Version:    target.Version,
			Path:       target.BundlePath,
			Supported:  supported,
		}
		if supported {
			entry.Injected = command.ResolvePaths(profile, target).Injected(exists)
			entry.Caveat = profile.Caveat
		}
		entries = append(entries, entry)
	}
	return entries
}

func writeList(w io.Writer, entries []listEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No supported applications found.")
		return err
	}
	table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(table, "NAME\tVERSION\tIDENTIFIER\tSTATUS")
	for _, entry := range entries {
		status := "unsupported"
		switch {
		case entry.Injected:
			status = "patched"
		case entry.Supported && entry.Caveat != "":
			status = "supported (caveat)"
		case entry.Supported:
			status = "supported"
		}
		fmt.Fprintf(table, "%s\t%s\t%s\t%s\n", entry.Name, entry.Version, entry.Identifier, status)
	}
	return table.Flush()
}
