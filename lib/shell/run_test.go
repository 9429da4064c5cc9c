// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package shell

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestExecCapturesCombinedOutput(t *testing.T) {
	t.Parallel()

	result, err := Exec{}.Run(context.Background(), Bash("echo out; echo err >&2; exit 3"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if result.Output != "out\nerr\n" {
		t.Errorf("Output = %q", result.Output)
	}
}

func TestExecStdin(t *testing.T) {
	t.Parallel()

	invocation := Bash("read line; echo got:$line")
	invocation.Stdin = strings.NewReader("value\n")
	result, err := Exec{}.Run(context.Background(), invocation)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Output != "got:value\n" || result.ExitCode != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestExecMissingBinary(t *testing.T) {
	t.Parallel()

	_, err := Exec{}.Run(context.Background(), Invocation{Path: "/nonexistent/binary"})
	if err == nil {
		t.Fatal("Run of a missing binary succeeded")
	}
}

func TestExecCancellationKillsProcessGroup(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := Exec{}.Run(ctx, Bash("sleep 30 & wait"))
	if err == nil {
		t.Fatal("cancelled Run returned nil error")
	}
	if result.ExitCode != -1 {
		t.Errorf("ExitCode = %d, want -1", result.ExitCode)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
}
