// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codesign

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/patchbay-dev/patchbay/lib/shell"
)

// AppleRootAuthority is the common name of the anchor certificate that
// "anchor apple generic" accepts.
const AppleRootAuthority = "Apple Root CA"

// ToolPath is the codesign binary.
const ToolPath = "/usr/bin/codesign"

// Identity is the signing information of one executable.
type Identity struct {
	Path       string
	Identifier string

	// TeamIdentifier is the organizational unit of the leaf
	// certificate. Empty for ad-hoc and unsigned code.
	TeamIdentifier string

	// Authorities is the certificate chain from leaf to root.
	Authorities []string

	// Valid reports whether the signature verified against the code on
	// disk.
	Valid bool
}

// AnchorApple reports whether the chain ends at Apple's root.
func (i Identity) AnchorApple() bool {
	return len(i.Authorities) > 0 && i.Authorities[len(i.Authorities)-1] == AppleRootAuthority
}

// Resolver reads the identity of an executable.
type Resolver interface {
	Resolve(ctx context.Context, path string) (Identity, error)
}

// ToolResolver resolves identities by running codesign.
type ToolResolver struct {
	Runner shell.Runner
}

// Resolve runs "codesign -dvvv" for the identity fields and
// "codesign --verify --strict" for validity. An unsigned executable is
// an error; a signed one that fails verification is returned with
// Valid false.
func (r ToolResolver) Resolve(ctx context.Context, path string) (Identity, error) {
	runner := r.Runner
	if runner == nil {
		runner = shell.Exec{}
	}

	display, err := runner.Run(ctx, shell.Invocation{Path: ToolPath, Args: []string{"-dvvv", path}})
	if err != nil {
		return Identity{}, fmt.Errorf("running codesign on %s: %w", path, err)
	}
	if display.ExitCode != 0 {
		return Identity{}, fmt.Errorf("codesign could not read %s: %s", path, strings.TrimSpace(display.Output))
	}
	identity := ParseDisplay(display.Output)
	identity.Path = path
	if identity.Identifier == "" {
		return Identity{}, fmt.Errorf("%s has no signing identifier", path)
	}

	verify, err := runner.Run(ctx, shell.Invocation{Path: ToolPath, Args: []string{"--verify", "--strict", path}})
	if err != nil {
		return Identity{}, fmt.Errorf("verifying signature of %s: %w", path, err)
	}
	identity.Valid = verify.ExitCode == 0
	return identity, nil
}

// ParseDisplay extracts identity fields from the output of
// "codesign -dvvv". Path and Valid are left for the caller.
func ParseDisplay(output string) Identity {
	var identity Identity
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		key, value, found := strings.Cut(scanner.Text(), "=")
		if !found {
			continue
		}
		switch key {
		case "Identifier":
			identity.Identifier = value
		case "Authority":
			identity.Authorities = append(identity.Authorities, value)
		case "TeamIdentifier":
			if value != "not set" {
				identity.TeamIdentifier = value
			}
		}
	}
	return identity
}
