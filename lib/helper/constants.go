// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"path"

	"github.com/patchbay-dev/patchbay/lib/codesign"
	"github.com/patchbay-dev/patchbay/lib/command"
)

const (
	// Label is the launchd label and the signing identifier of the
	// daemon binary.
	Label = "dev.patchbay.helper"

	// SocketPath is where the daemon listens.
	SocketPath = "/var/run/" + Label + ".sock"

	// ClientIdentifier is the signing identifier the daemon requires of
	// its callers.
	ClientIdentifier = "dev.patchbay.cli"
)

// TeamIdentifier is the organizational unit of the certificate that
// signs release builds. Set at link time:
//
//	go build -ldflags "-X github.com/patchbay-dev/patchbay/lib/helper.TeamIdentifier=ABCDE12345"
var TeamIdentifier = "PATCHBAY00"

// InstallPath is where the daemon binary lives once installed.
var InstallPath = path.Join(command.HelperToolsDir, Label)

// PlistPath is the launchd job definition for the daemon.
var PlistPath = path.Join(command.LaunchDaemonsDir, Label+".plist")

// ClientRequirement is the requirement every caller of the daemon must
// satisfy.
func ClientRequirement() codesign.Requirement {
	return codesign.Requirement{Identifier: ClientIdentifier, OrganizationalUnit: TeamIdentifier}
}
