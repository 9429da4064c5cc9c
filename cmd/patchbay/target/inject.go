// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/patchbay-dev/patchbay/cmd/patchbay/cli"
	"github.com/patchbay-dev/patchbay/lib/elevation"
	"github.com/patchbay-dev/patchbay/lib/pipeline"
	"github.com/patchbay-dev/patchbay/lib/schema"
	"github.com/patchbay-dev/patchbay/lib/secret"
	"github.com/patchbay-dev/patchbay/lib/tui"
)

type injectParams struct {
	cli.GlobalParams
	NoTUI        bool   `flag:"no-tui" desc:"log stage transitions instead of drawing progress"`
	Yes          bool   `flag:"yes,y" desc:"accept the target's caveat without asking"`
	Password     bool   `flag:"password" desc:"prompt for the admin password and elevate with sudo"`
	PasswordFile string `flag:"password-file" desc:"read the admin password from a file (- for stdin) and elevate with sudo"`
	Tries        int    `flag:"tries" default:"3" desc:"password attempts before giving up"`
}

// InjectCommand returns the "inject" command.
func InjectCommand() *cli.Command {
	var params injectParams
	inject := &cli.Command{
		Name:    "inject",
		Summary: "Run every injection stage against one application",
		Description: `Back up the target's executable, insert the library, re-sign,
and run the profile's extra steps. Elevated commands go through sudo
when --password is given, else through the privileged helper, else
through the system consent dialog.

Interrupting the command (Ctrl-C, or q in the progress view) stops the
run after the command in flight finishes.`,
		Usage: "patchbay inject <identifier> [flags]",
		Examples: []cli.Example{
			{Description: "Inject with the helper", Command: "patchbay inject com.example.Editor"},
			{Description: "Inject using sudo, no progress view", Command: "patchbay inject com.example.Editor --password --no-tui"},
		},
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("inject", &params) },
	}
	inject.Run = func(args []string) error {
		if len(args) != 1 {
			return inject.ErrUsage("expected one target identifier, got %d arguments", len(args))
		}
		if params.Tries < 1 {
			return inject.ErrUsage("--tries must be at least 1")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		runtime, err := params.Open(ctx)
		if err != nil {
			return err
		}
		defer runtime.Close()

		switch {
		case params.PasswordFile != "":
			if err := cachePasswordFile(ctx, runtime, params.PasswordFile); err != nil {
				return err
			}
		case params.Password:
			if err := cachePassword(ctx, runtime, params.Tries); err != nil {
				return err
			}
		}

		injector := runtime.Injector
		err = injector.Start(ctx, args[0], pipeline.StartOptions{
			Acknowledge: func(caveat string) bool {
				if params.Yes {
					return true
				}
				fmt.Fprintf(os.Stderr, "Caveat: %s\n", caveat)
				return cli.Confirm(os.Stdin, os.Stderr, "Continue?")
			},
		})
		if err != nil {
			var missing *pipeline.MissingToolsError
			if errors.As(err, &missing) {
				fmt.Fprintf(os.Stderr, "Tool storage %s is missing: %v\n", runtime.Config.Tools.Dir, missing.Names)
			}
			return err
		}

		go func() {
			select {
			case <-ctx.Done():
				injector.Stop()
			case <-injector.Done():
			}
		}()

		if !params.NoTUI && cli.IsTerminal(os.Stderr) {
			if err := showProgress(injector); err != nil {
				injector.Stop()
				return err
			}
		} else {
			logProgress(injector, runtime.Logger)
		}

		runErr := injector.Wait(context.Background())
		if runErr == nil {
			fmt.Fprintf(os.Stdout, "Injected %s.\n", args[0])
			return nil
		}
		if pipeline.IsAborted(runErr) {
			fmt.Fprintln(os.Stderr, "Run stopped.")
			return &cli.ExitError{Code: 130}
		}
		reportFailure(runErr, injector, runtime.Config.Reports.IssueURL)
		return &cli.ExitError{Code: 1}
	}
	return inject
}

// cachePassword reads the admin password and verifies it with sudo,
// asking again after a rejection.
func cachePassword(ctx context.Context, runtime *cli.Runtime, tries int) error {
	for attempt := 1; ; attempt++ {
		password, err := cli.ReadPassword("Password: ")
		if err != nil {
			return err
		}
		if err := runtime.Credentials.Set(password); err != nil {
			return fmt.Errorf("caching credential: %w", err)
		}
		err = runtime.Executor.VerifyCredential(ctx)
		if err == nil {
			return nil
		}
		var credentialError *elevation.CredentialError
		if !errors.As(err, &credentialError) || attempt >= tries {
			return err
		}
		fmt.Fprintln(os.Stderr, "Sorry, try again.")
	}
}

// cachePasswordFile caches and verifies a password read from path. A
// file gets one attempt.
func cachePasswordFile(ctx context.Context, runtime *cli.Runtime, path string) error {
	buffer, err := secret.ReadFromPath(path)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	password := bytes.Clone(buffer.Bytes())
	buffer.Close()
	if err := runtime.Credentials.Set(password); err != nil {
		return fmt.Errorf("caching credential: %w", err)
	}
	return runtime.Executor.VerifyCredential(ctx)
}

func showProgress(injector *pipeline.Injector) error {
	updates, unsubscribe := injector.Subscribe()
	defer unsubscribe()
	program := tea.NewProgram(tui.NewRunModel(updates, injector.Stop), tea.WithOutput(os.Stderr))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("progress view: %w", err)
	}
	return nil
}

// logProgress logs each stage transition until the run ends.
func logProgress(injector *pipeline.Injector, logger *slog.Logger) {
	updates, unsubscribe := injector.Subscribe()
	defer unsubscribe()

	seen := make(map[schema.Stage]schema.StageStatus)
	for {
		select {
		case status := <-updates:
			logTransitions(logger, status, seen)
		case <-injector.Done():
			logTransitions(logger, injector.Status(), seen)
			return
		}
	}
}

func logTransitions(logger *slog.Logger, status schema.RunStatus, seen map[schema.Stage]schema.StageStatus) {
	for _, record := range status.Records {
		if previous, ok := seen[record.Stage]; ok && previous == record.Status {
			continue
		}
		seen[record.Stage] = record.Status
		logger.Info(record.Message,
			"stage", record.Stage,
			"status", record.Status,
			"progress", fmt.Sprintf("%.0f%%", status.Progress*100),
		)
	}
}

func reportFailure(runErr error, injector *pipeline.Injector, issueBase string) {
	report, ok := injector.Report()
	if !ok {
		fmt.Fprintf(os.Stderr, "Run failed: %v\n", runErr)
		return
	}
	fmt.Fprintf(os.Stderr, "Run failed at %s (%s): %s\n", report.Stage, report.Kind, report.Message)
	if report.Output != "" {
		fmt.Fprintf(os.Stderr, "\n%s\n", report.Output)
	}
	if report.Kind == schema.ErrorKindCredential {
		fmt.Fprintln(os.Stderr, "The credential was rejected. Run again to re-enter it.")
		return
	}
	if url, err := report.IssueURL(issueBase); err == nil {
		fmt.Fprintf(os.Stderr, "\nTo report this failure:\n  %s\n", url)
	}
}
