// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package elevation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAborted resolves items dequeued after Abort, or whose context
// was cancelled before they started.
var ErrAborted = errors.New("execution aborted")

// ErrClosed resolves items submitted to or left in a closed executor.
var ErrClosed = errors.New("executor closed")

// privacyHint explains the macOS error that appears when the calling
// terminal lacks the App Management or Full Disk Access permission.
const privacyHint = "grant App Management and Full Disk Access to the terminal running patchbay in System Settings > Privacy & Security, then retry"

// CommandError reports a command that ran and exited non-zero.
type CommandError struct {
	Command  string
	ExitCode int

	// Output is the combined stdout and stderr.
	Output string

	// Path names the elevation path, or "local".
	Path string

	// Hint suggests a fix for recognized failures.
	Hint string
}

func (e *CommandError) Error() string {
	message := fmt.Sprintf("command exited with status %d", e.ExitCode)
	if line := lastLine(e.Output); line != "" {
		message += ": " + line
	}
	if e.Hint != "" {
		message += " (" + e.Hint + ")"
	}
	return message
}

// CredentialError reports that elevation itself failed: the cached
// password was rejected, or the operator cancelled the consent
// prompt. The operator should be asked again.
type CredentialError struct {
	// Denied is set when the operator cancelled a consent prompt.
	Denied bool

	Reason string
}

func (e *CredentialError) Error() string {
	if e.Denied {
		return "administrator authorization was cancelled"
	}
	if e.Reason == "" {
		return "administrator credential rejected"
	}
	return "administrator credential rejected: " + e.Reason
}

// PreconditionError reports a missing local input detected before any
// elevated command was issued.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Message
}

// lastLine returns the last non-empty line of output, which is where
// shells and tools put the error that ended them.
func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for index := len(lines) - 1; index >= 0; index-- {
		if line := strings.TrimSpace(lines[index]); line != "" {
			return line
		}
	}
	return ""
}
