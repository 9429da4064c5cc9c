// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"howett.net/plist"

	"github.com/patchbay-dev/patchbay/lib/elevation"
	"github.com/patchbay-dev/patchbay/lib/shell"
)

// launchdJob is the launch daemon definition.
type launchdJob struct {
	Label             string   `plist:"Label"`
	Program           string   `plist:"Program"`
	ProgramArguments  []string `plist:"ProgramArguments"`
	RunAtLoad         bool     `plist:"RunAtLoad"`
	KeepAlive         bool     `plist:"KeepAlive"`
	StandardErrorPath string   `plist:"StandardErrorPath"`
}

// LaunchdInstaller installs the daemon as a launchd system job, with
// administrator consent obtained through the system dialog.
type LaunchdInstaller struct {
	// Source is the daemon binary shipped with the client.
	Source string

	// Runner runs osascript. Defaults to shell.Exec.
	Runner shell.Runner

	// InstallPath, PlistPath and SocketPath default to the package
	// values.
	InstallPath string
	PlistPath   string
	SocketPath  string
}

func (i LaunchdInstaller) installPath() string { return valueOr(i.InstallPath, InstallPath) }
func (i LaunchdInstaller) plistPath() string   { return valueOr(i.PlistPath, PlistPath) }
func (i LaunchdInstaller) socketPath() string  { return valueOr(i.SocketPath, SocketPath) }

func valueOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Installed reports whether the daemon binary is in place.
func (i LaunchdInstaller) Installed() bool {
	_, err := os.Stat(i.installPath())
	return err == nil
}

// JobPlist renders the launchd job definition.
func (i LaunchdInstaller) JobPlist() ([]byte, error) {
	return plist.MarshalIndent(launchdJob{
		Label:             Label,
		Program:           i.installPath(),
		ProgramArguments:  []string{i.installPath(), "--socket", i.socketPath()},
		RunAtLoad:         true,
		KeepAlive:         true,
		StandardErrorPath: "/var/log/" + Label + ".log",
	}, plist.XMLFormat, "\t")
}

// Script returns the shell text that installs the binary and job
// definition staged at jobPath and (re)loads the job.
func (i LaunchdInstaller) Script(jobPath string) (string, error) {
	paths := []string{i.Source, jobPath, i.installPath(), i.plistPath()}
	for _, path := range paths {
		// The script travels inside an AppleScript string literal and
		// a single-quoted shell word; neither quote can be escaped in
		// both at once.
		if strings.ContainsAny(path, `'"\`) {
			return "", fmt.Errorf("path %q contains a quote or backslash", path)
		}
	}
	lines := []string{
		"set -e",
		fmt.Sprintf("/bin/mkdir -p '%s'", parentDir(i.installPath())),
		fmt.Sprintf("/usr/bin/install -o root -g wheel -m 0544 '%s' '%s'", i.Source, i.installPath()),
		fmt.Sprintf("/usr/bin/install -o root -g wheel -m 0644 '%s' '%s'", jobPath, i.plistPath()),
		fmt.Sprintf("/bin/launchctl bootout system/%s 2>/dev/null || true", Label),
		fmt.Sprintf("/bin/launchctl bootstrap system '%s'", i.plistPath()),
	}
	return strings.Join(lines, "; "), nil
}

func parentDir(path string) string {
	if index := strings.LastIndex(path, "/"); index > 0 {
		return path[:index]
	}
	return "/"
}

// Install stages the job definition and runs the install script as
// root. A cancelled authorization dialog is an *InstallationError with
// Denied set.
func (i LaunchdInstaller) Install(ctx context.Context) error {
	if i.Source == "" {
		return &InstallationError{Err: errors.New("helper binary location is not configured")}
	}
	if _, err := os.Stat(i.Source); err != nil {
		return &InstallationError{Err: fmt.Errorf("helper binary: %w", err)}
	}

	job, err := i.JobPlist()
	if err != nil {
		return &InstallationError{Err: fmt.Errorf("rendering launchd job: %w", err)}
	}
	staged, err := os.CreateTemp("", Label+"-*.plist")
	if err != nil {
		return &InstallationError{Err: err}
	}
	defer os.Remove(staged.Name())
	if _, err := staged.Write(job); err != nil {
		staged.Close()
		return &InstallationError{Err: fmt.Errorf("staging launchd job: %w", err)}
	}
	if err := staged.Close(); err != nil {
		return &InstallationError{Err: fmt.Errorf("staging launchd job: %w", err)}
	}

	script, err := i.Script(staged.Name())
	if err != nil {
		return &InstallationError{Err: err}
	}

	runner := i.Runner
	if runner == nil {
		runner = shell.Exec{}
	}
	result, err := elevation.RunWithConsent(ctx, runner, script)
	if err != nil {
		var credential *elevation.CredentialError
		if errors.As(err, &credential) && credential.Denied {
			return &InstallationError{Denied: true}
		}
		return &InstallationError{Err: err}
	}
	if result.ExitCode != 0 {
		return &InstallationError{Output: strings.TrimSpace(result.Output)}
	}
	return nil
}
