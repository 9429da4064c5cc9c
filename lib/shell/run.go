// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"syscall"
)

// BashPath is the shell used for command text.
const BashPath = "/bin/bash"

// Invocation describes one process to start.
type Invocation struct {
	Path string
	Args []string

	// Stdin, when set, is copied to the process's standard input.
	Stdin io.Reader

	// Env replaces the environment when non-nil.
	Env []string

	Dir string
}

// Bash returns an invocation of bash -c text.
func Bash(text string) Invocation {
	return Invocation{Path: BashPath, Args: []string{"-c", text}}
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	// Output is stdout and stderr interleaved in write order.
	Output string

	ExitCode int
}

// Runner starts processes. Implemented by [Exec]; tests substitute
// fakes.
type Runner interface {
	Run(ctx context.Context, invocation Invocation) (Result, error)
}

// Exec runs processes with os/exec.
type Exec struct{}

// Run starts the invocation in its own process group and waits for it.
// A non-zero exit is reported in Result.ExitCode with a nil error; the
// error is non-nil only when the process could not be started or was
// killed by cancellation.
func (Exec) Run(ctx context.Context, invocation Invocation) (Result, error) {
	cmd := exec.CommandContext(ctx, invocation.Path, invocation.Args...)
	var output bytes.Buffer
	// The same writer on both streams makes os/exec share one pipe, so
	// the interleaving matches what a terminal would show.
	cmd.Stdout = &output
	cmd.Stderr = &output
	cmd.Stdin = invocation.Stdin
	cmd.Env = invocation.Env
	cmd.Dir = invocation.Dir

	// Signals on cancellation reach the shell and everything it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}

	err := cmd.Run()
	result := Result{Output: output.String()}
	if err == nil {
		return result, nil
	}

	var exitError *exec.ExitError
	if errors.As(err, &exitError) && ctx.Err() == nil {
		result.ExitCode = exitError.ExitCode()
		return result, nil
	}
	result.ExitCode = -1
	return result, err
}
