// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete patchbay CLI command tree.
package commands

import (
	"fmt"

	"github.com/patchbay-dev/patchbay/cmd/patchbay/cli"
	"github.com/patchbay-dev/patchbay/cmd/patchbay/helperctl"
	"github.com/patchbay-dev/patchbay/cmd/patchbay/manifest"
	"github.com/patchbay-dev/patchbay/cmd/patchbay/target"
	"github.com/patchbay-dev/patchbay/lib/version"
)

// Root builds and returns the complete patchbay CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "patchbay",
		Description: `patchbay: library injection for installed macOS applications.

Back up an application's executable, insert a shared library, and
re-sign the bundle, following a per-application profile file.`,
		Subcommands: []*cli.Command{
			target.ListCommand(),
			target.PlanCommand(),
			target.InjectCommand(),
			helperctl.Command(),
			manifest.Command(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("patchbay %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "See which installed applications have a profile",
				Command:     "patchbay list",
			},
			{
				Description: "Preview the commands for one application",
				Command:     "patchbay plan com.example.Editor",
			},
			{
				Description: "Inject, with a live progress view",
				Command:     "patchbay inject com.example.Editor",
			},
			{
				Description: "Install the privileged helper once to skip password prompts",
				Command:     "patchbay helper install",
			},
		},
	}
}
