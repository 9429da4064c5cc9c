// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package elevation

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/credential"
	"github.com/patchbay-dev/patchbay/lib/secret"
	"github.com/patchbay-dev/patchbay/lib/shell"
)

const (
	sudoPath      = "/usr/bin/sudo"
	osascriptPath = "/usr/bin/osascript"
)

// Elevator runs command text as root.
type Elevator interface {
	// Name identifies the path in logs and results.
	Name() string

	// Transport is the escaping the command text must use.
	Transport() command.Transport

	Run(ctx context.Context, text string) (shell.Result, error)
}

// Channel is the privileged helper connection. Implemented by
// helper.Client.
type Channel interface {
	ExecuteElevated(ctx context.Context, text string) (shell.Result, error)
}

// sudoElevator feeds the cached password to sudo on stdin, so it never
// appears in any process's argument list.
type sudoElevator struct {
	runner      shell.Runner
	credentials *credential.Cache
}

func (s *sudoElevator) Name() string                 { return "sudo" }
func (s *sudoElevator) Transport() command.Transport { return command.TransportBash }

func (s *sudoElevator) Run(ctx context.Context, text string) (shell.Result, error) {
	return s.invoke(ctx, []string{"-S", "-k", "-p", "", shell.BashPath, "-c", text})
}

// verify checks the password without running anything.
func (s *sudoElevator) verify(ctx context.Context) (shell.Result, error) {
	result, err := s.invoke(ctx, []string{"-S", "-k", "-v", "-p", ""})
	if err != nil {
		return result, err
	}
	if result.ExitCode != 0 {
		return result, &CredentialError{Reason: lastLine(result.Output)}
	}
	return result, nil
}

func (s *sudoElevator) invoke(ctx context.Context, args []string) (shell.Result, error) {
	var result shell.Result
	var runError error
	err := s.credentials.Use(func(password []byte) error {
		stdin := make([]byte, len(password)+1)
		copy(stdin, password)
		stdin[len(password)] = '\n'
		defer secret.Zero(stdin)

		result, runError = s.runner.Run(ctx, shell.Invocation{
			Path:  sudoPath,
			Args:  args,
			Stdin: bytes.NewReader(stdin),
		})
		return nil
	})
	if err != nil {
		return shell.Result{}, &CredentialError{Reason: err.Error()}
	}
	if runError != nil {
		return result, fmt.Errorf("running sudo: %w", runError)
	}
	if result.ExitCode != 0 && passwordRejected(result.Output) {
		s.credentials.Clear()
		return result, &CredentialError{Reason: lastLine(result.Output)}
	}
	return result, nil
}

// passwordRejected recognizes sudo's own authentication failures, as
// opposed to the command failing.
func passwordRejected(output string) bool {
	for _, marker := range []string{
		"Sorry, try again",
		"incorrect password attempt",
		"no password was provided",
		"is not in the sudoers file",
	} {
		if strings.Contains(output, marker) {
			return true
		}
	}
	return false
}

// consentElevator asks macOS for administrator consent for each
// command through "do shell script ... with administrator privileges".
type consentElevator struct {
	runner shell.Runner
}

func (c *consentElevator) Name() string                 { return "consent" }
func (c *consentElevator) Transport() command.Transport { return command.TransportAppleScript }

// executionError matches osascript's report of a failed script:
// "execution error: <message> (<number>)".
var executionError = regexp.MustCompile(`(?s)execution error: (.*) \((-?\d+)\)\s*$`)

// userCanceled is the AppleScript error number for a cancelled dialog.
const userCanceled = -128

func (c *consentElevator) Run(ctx context.Context, text string) (shell.Result, error) {
	return RunWithConsent(ctx, c.runner, text)
}

// RunWithConsent runs bash text as root after the operator approves the
// system authorization dialog. A cancelled dialog is a
// *CredentialError with Denied set; a command that ran and failed is
// a result with its exit status.
func RunWithConsent(ctx context.Context, runner shell.Runner, text string) (shell.Result, error) {
	script := `do shell script "exec 2>&1; ` + strings.ReplaceAll(text, `"`, `\"`) +
		`" with administrator privileges`
	result, err := runner.Run(ctx, shell.Invocation{Path: osascriptPath, Args: []string{"-e", script}})
	if err != nil {
		return result, fmt.Errorf("running osascript: %w", err)
	}
	if result.ExitCode == 0 {
		return result, nil
	}

	match := executionError.FindStringSubmatch(result.Output)
	if match == nil {
		return result, nil
	}
	code, _ := strconv.Atoi(match[2])
	if code == userCanceled {
		return result, &CredentialError{Denied: true}
	}
	// For a failed shell command AppleScript reports the shell's exit
	// status as the error number and its output as the message.
	return shell.Result{Output: match[1], ExitCode: code}, nil
}

// channelElevator forwards to the privileged helper.
type channelElevator struct {
	channel Channel
}

func (c *channelElevator) Name() string                 { return "helper" }
func (c *channelElevator) Transport() command.Transport { return command.TransportBash }

func (c *channelElevator) Run(ctx context.Context, text string) (shell.Result, error) {
	return c.channel.ExecuteElevated(ctx, text)
}
