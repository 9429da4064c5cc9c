// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command turns a target profile into the shell commands each
// injection stage runs.
//
// The [Formatter] is pure: given the same profile, target, tool
// locations, and filesystem state it always produces the same [Plan].
// The only I/O it performs is read-only existence checks through an
// injected [Exister], which decide whether a step is a no-op (the
// backup already exists) or impossible (a tool is missing).
//
// A stage whose preconditions fail yields a plan of exactly one
// [Fail] command. That command runs unprivileged and exits non-zero
// with the diagnostic on stderr, so precondition failures travel
// through the executor and the pipeline's error path like any other
// failure, and no elevation prompt is ever shown for a stage that
// cannot succeed.
//
// Paths are escaped for the transport that will carry the command
// ([Transport]): the AppleScript consent path needs spaces written as
// a double backslash and a space, while shells invoked directly need
// a single backslash. [Unescape] inverts [Escape] for every path.
package command
