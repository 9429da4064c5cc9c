// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"path/filepath"
	"strings"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

const (
	frameworksDir = "Contents/Frameworks"
	executableDir = "Contents/MacOS"

	// BackupSuffix is appended to the executable path to name the
	// pristine copy.
	BackupSuffix = ".backup"

	// LaunchDaemonsDir and HelperToolsDir are where macOS keeps
	// registered privileged helpers.
	LaunchDaemonsDir = "/Library/LaunchDaemons"
	HelperToolsDir   = "/Library/PrivilegedHelperTools"
)

// Paths are the absolute filesystem locations derived from a profile
// and a discovered target. Paths are neutral (unescaped).
type Paths struct {
	// Bundle is the .app directory.
	Bundle string

	// Executable is the binary that receives the load command.
	Executable string

	// Backup is Executable + BackupSuffix.
	Backup string

	// Bridge is the directory that receives the library link in copy
	// mode.
	Bridge string

	// InfoPlist is the bundle's Contents/Info.plist.
	InfoPlist string
}

// ResolvePaths computes the paths for target under profile.
func ResolvePaths(profile schema.TargetProfile, target schema.Target) Paths {
	bundle := filepath.Clean(target.BundlePath)

	executable := filepath.Join(bundle, executableDir, target.ExecutableName)
	if profile.ExecutablePath != "" {
		executable = filepath.Join(bundle, relative(profile.ExecutablePath))
	}

	bridge := filepath.Join(bundle, frameworksDir)
	if profile.BridgePath != "" {
		bridge = filepath.Join(bundle, relative(profile.BridgePath))
	}
	if profile.AutoHandleSetapp || target.InSetapp() {
		bridge = filepath.Join(bundle, executableDir)
	}

	return Paths{
		Bundle:     bundle,
		Executable: executable,
		Backup:     executable + BackupSuffix,
		Bridge:     bridge,
		InfoPlist:  filepath.Join(bundle, "Contents", "Info.plist"),
	}
}

// ComponentExecutable returns the main executable of a nested bundle
// given relative to the outer bundle, assuming the macOS convention
// that the executable is named after the bundle.
func (p Paths) ComponentExecutable(component string) string {
	component = relative(component)
	name := strings.TrimSuffix(filepath.Base(component), filepath.Ext(component))
	return filepath.Join(p.Bundle, component, executableDir, name)
}

// Within resolves a bundle-relative path.
func (p Paths) Within(rel string) string {
	return filepath.Join(p.Bundle, relative(rel))
}

// Injected reports whether the target already carries a backup, which
// a successful library insertion always leaves behind.
func (p Paths) Injected(exists Exister) bool {
	return exists(p.Backup)
}

// relative strips leading slashes so profile paths written as
// "/Contents/..." and "Contents/..." mean the same thing.
func relative(path string) string {
	return strings.TrimLeft(path, "/")
}
