// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import "time"

// ProtocolVersion is bumped on incompatible wire changes. The client
// refuses a helper that speaks a different version.
const ProtocolVersion = 1

// Request actions.
const (
	// ActionExecute runs Request.Command with bash -c as root.
	ActionExecute = "execute"

	// ActionStatus returns the helper's Status.
	ActionStatus = "status"
)

// Hello is the first message on an accepted connection.
type Hello struct {
	Protocol int    `cbor:"protocol"`
	Version  string `cbor:"version"`
	PID      int    `cbor:"pid"`
}

// Request is sent by the client.
type Request struct {
	// RequestID is echoed in the response.
	RequestID string `cbor:"request_id"`

	Action string `cbor:"action"`

	// Command is the shell text for ActionExecute. Each request runs
	// in a fresh shell; nothing carries over between requests.
	Command string `cbor:"command,omitempty"`
}

// Response answers one Request.
type Response struct {
	RequestID string `cbor:"request_id"`

	// OK is false when the helper could not act on the request at all
	// (unknown action, process failed to start). A command that ran
	// and exited non-zero is OK with a non-zero ExitCode.
	OK    bool   `cbor:"ok"`
	Error string `cbor:"error,omitempty"`

	// Output is the command's combined stdout and stderr.
	Output   string `cbor:"output,omitempty"`
	ExitCode int    `cbor:"exit_code"`

	Status *Status `cbor:"status,omitempty"`
}

// Status describes the running helper.
type Status struct {
	Version string `cbor:"version"`

	// BinaryHash is the blake3 digest of the helper executable, so the
	// client can detect a stale installation.
	BinaryHash string `cbor:"binary_hash,omitempty"`

	PID       int       `cbor:"pid"`
	StartedAt time.Time `cbor:"started_at"`

	// Executed counts execute requests served since start.
	Executed uint64 `cbor:"executed"`
}
