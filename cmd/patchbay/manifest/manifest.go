// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest implements "patchbay manifest", which edits a
// bundle's Info.plist. The helper-daemon stage runs it as root to let a
// re-signed helper be blessed by the patched application.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"howett.net/plist"

	"github.com/patchbay-dev/patchbay/cmd/patchbay/cli"
)

// privilegedExecutablesKey maps helper labels to the code requirement
// the application accepts for each.
const privilegedExecutablesKey = "SMPrivilegedExecutables"

// Command returns the "manifest" command group.
func Command() *cli.Command {
	return &cli.Command{
		Name:    "manifest",
		Summary: "Edit application manifests",
		Subcommands: []*cli.Command{
			authorizeCommand(),
		},
	}
}

type authorizeParams struct {
	Plist  string `flag:"plist" desc:"Info.plist to edit"`
	Helper string `flag:"helper" desc:"label of the privileged helper"`
}

func authorizeCommand() *cli.Command {
	var params authorizeParams
	authorize := &cli.Command{
		Name:    "authorize",
		Summary: "Relax a helper's code requirement to its identifier",
		Description: `Replace the SMPrivilegedExecutables entry for a helper with a
requirement that checks only its identifier, so the ad-hoc signed
helper is accepted. The plist keeps its on-disk format.`,
		Usage: "patchbay manifest authorize --plist <Info.plist> --helper <label>",
		Flags: func() *pflag.FlagSet { return cli.FlagsFromParams("authorize", &params) },
	}
	authorize.Run = func(args []string) error {
		if len(args) != 0 {
			return authorize.ErrUsage("unexpected arguments: %v", args)
		}
		if params.Plist == "" || params.Helper == "" {
			return authorize.ErrUsage("--plist and --helper are required")
		}
		return Authorize(params.Plist, params.Helper)
	}
	return authorize
}

// Authorize sets SMPrivilegedExecutables[label] in the plist at path
// to `identifier "<label>"`, creating the dictionary if needed.
func Authorize(path, label string) error {
	if label == "" {
		return errors.New("helper label is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var document map[string]any
	format, err := plist.Unmarshal(data, &document)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	if document == nil {
		document = make(map[string]any)
	}

	executables, ok := document[privilegedExecutablesKey].(map[string]any)
	if !ok {
		if existing, present := document[privilegedExecutablesKey]; present {
			return fmt.Errorf("%s in %s is %T, want a dictionary", privilegedExecutablesKey, path, existing)
		}
		executables = make(map[string]any)
	}
	executables[label] = Requirement(label)
	document[privilegedExecutablesKey] = executables

	var buffer bytes.Buffer
	encoder := plist.NewEncoderForFormat(&buffer, format)
	if format == plist.XMLFormat {
		encoder.Indent("\t")
	}
	if err := encoder.Encode(document); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return writeFileAtomic(path, buffer.Bytes(), info.Mode().Perm())
}

// Requirement is the code requirement written for label.
func Requirement(label string) string {
	return fmt.Sprintf("identifier %q", label)
}

// writeFileAtomic replaces path through a temporary sibling so a
// partial write never leaves a truncated manifest.
func writeFileAtomic(path string, data []byte, mode os.FileMode) error {
	temporary := path + ".patchbay-tmp"
	if err := os.WriteFile(temporary, data, mode); err != nil {
		return err
	}
	if err := os.Chmod(temporary, mode); err != nil {
		os.Remove(temporary)
		return err
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		return err
	}
	return nil
}
