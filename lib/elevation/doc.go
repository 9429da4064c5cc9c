// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package elevation executes stage commands one at a time, elevating
// the ones that need root.
//
// The [Executor] owns an explicit FIFO queue drained by a single
// worker goroutine. [Executor.Submit] returns a [Future] immediately;
// execution never overlaps, so a command's process has exited and its
// output has been captured before the next command starts.
// [Executor.SubmitSequence] submits items one by one and stops at the
// first failure, leaving the rest unexecuted.
//
// Abort is cooperative. [Executor.Abort] sets an atomic flag that the
// worker checks between items; queued items then resolve with
// [ErrAborted] while the command already running is left to finish.
// Killing a root-owned process mid-flight could leave the target half
// patched, so in-flight commands run on a context detached from the
// caller's cancellation.
//
// Elevated commands take one of three paths, chosen deterministically
// each time:
//
//   - a cached administrator credential: sudo -S with the password on
//     stdin, command text run by bash -c ([command.TransportBash])
//   - otherwise the privileged helper channel, when configured
//     ([command.TransportBash])
//   - otherwise an osascript consent prompt per command
//     ([command.TransportAppleScript]); the command text must already
//     be in AppleScript literal form apart from double quotes
//
// [Executor.Transport] reports which escaping the next elevated
// command needs, so the formatter can produce matching text.
package elevation
