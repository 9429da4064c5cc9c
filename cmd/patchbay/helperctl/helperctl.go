// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package helperctl implements "patchbay helper": installing the
// privileged helper daemon and checking on it.
package helperctl

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/patchbay-dev/patchbay/cmd/patchbay/cli"
	"github.com/patchbay-dev/patchbay/lib/binhash"
	"github.com/patchbay-dev/patchbay/lib/helper"
	"github.com/patchbay-dev/patchbay/lib/ipc"
)

// Command returns the "helper" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "helper",
		Summary: "Install and inspect the privileged helper daemon",
		Description: `The helper is a launchd daemon running as root. Once installed,
elevated commands run through it without a password prompt, and only
a correctly signed patchbay binary may connect.`,
		Subcommands: []*cli.Command{
			installCommand(),
			statusCommand(),
		},
	}
}

type installParams struct {
	cli.GlobalParams
	Force bool `flag:"force" desc:"reinstall even if the helper is already in place"`
}

func installCommand() *cli.Command {
	var params installParams
	return &cli.Command{
		Name:    "install",
		Summary: "Install the helper daemon (asks for administrator consent)",
		Usage:   "patchbay helper install [flags]",
		Flags:   func() *pflag.FlagSet { return cli.FlagsFromParams("install", &params) },
		Run: func(args []string) error {
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			logger := cli.NewCommandLogger(params.Verbose)
			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolving own executable: %w", err)
			}
			client, installer, err := cli.NewHelperClient(cfg, executable, logger)
			if err != nil {
				return err
			}
			defer client.Close()

			ctx := context.Background()
			if params.Force {
				if err := installer.Install(ctx); err != nil {
					return err
				}
			}
			if err := client.EnsureInstalled(ctx); err != nil {
				return err
			}
			status, err := client.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Helper %s running (pid %d).\n", status.Version, status.PID)
			return nil
		},
	}
}

type statusParams struct {
	cli.GlobalParams
	cli.JSONOutput
}

// statusReport is the output of "patchbay helper status".
type statusReport struct {
	Installed  bool      `json:"installed"`
	Running    bool      `json:"running"`
	Version    string    `json:"version,omitempty"`
	PID        int       `json:"pid,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	Executed   uint64    `json:"executed"`
	BinaryHash string    `json:"binary_hash,omitempty"`

	// ShippedHash is the digest of the helper binary this client would
	// install. A mismatch means the installed daemon is stale.
	ShippedHash string `json:"shipped_hash,omitempty"`
	Stale       bool   `json:"stale"`
	Error       string `json:"error,omitempty"`
}

func statusCommand() *cli.Command {
	var params statusParams
	return &cli.Command{
		Name:    "status",
		Summary: "Report whether the helper is running and up to date",
		Description: `Connect to the helper and print its version, uptime, and how many
commands it has executed. Exits 1 when the helper cannot be reached.`,
		Usage: "patchbay helper status [flags]",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("status", &params) },
		Run: func(args []string) error {
			cfg, err := params.LoadConfig()
			if err != nil {
				return err
			}
			logger := cli.NewCommandLogger(params.Verbose)
			executable, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolving own executable: %w", err)
			}

			installer := helper.LaunchdInstaller{SocketPath: cfg.Helper.SocketPath}
			report := statusReport{Installed: installer.Installed()}
			if digest, err := binhash.HashFile(cfg.HelperBinary(executable)); err == nil {
				report.ShippedHash = binhash.FormatDigest(digest)
			} else {
				logger.Debug("shipped helper binary not hashed", "error", err)
			}

			if report.Installed {
				// Status must not trigger an install, so the client gets
				// no installer.
				client := helper.NewClient(helper.ClientConfig{
					SocketPath: cfg.Helper.SocketPath,
					Logger:     logger,
				})
				defer client.Close()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				status, err := client.Status(ctx)
				if err != nil {
					report.Error = err.Error()
				} else {
					report.fill(status)
				}
			}

			if done, err := params.EmitJSON(report); done {
				if err != nil {
					return err
				}
			} else {
				writeStatus(os.Stdout, report)
			}
			if !report.Running {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

func (r *statusReport) fill(status ipc.Status) {
	r.Running = true
	r.Version = status.Version
	r.PID = status.PID
	r.StartedAt = status.StartedAt
	r.Executed = status.Executed
	r.BinaryHash = status.BinaryHash
	r.Stale = r.ShippedHash != "" && r.BinaryHash != "" && r.ShippedHash != r.BinaryHash
}

func writeStatus(w io.Writer, report statusReport) {
	switch {
	case !report.Installed:
		fmt.Fprintln(w, "Helper is not installed. Run 'patchbay helper install'.")
		return
	case !report.Running:
		fmt.Fprintf(w, "Helper is installed but not reachable: %s\n", report.Error)
		return
	}
	fmt.Fprintf(w, "Version:   %s\n", report.Version)
	fmt.Fprintf(w, "PID:       %d\n", report.PID)
	fmt.Fprintf(w, "Started:   %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Executed:  %d\n", report.Executed)
	if report.Stale {
		fmt.Fprintln(w, "Installed helper differs from this build. Run 'patchbay helper install --force'.")
	}
}
