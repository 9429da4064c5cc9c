// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helper

import "fmt"

// InstallationError reports that the daemon could not be installed.
type InstallationError struct {
	// Denied is set when the operator cancelled the authorization
	// dialog.
	Denied bool

	// Output is what the installation script printed.
	Output string

	Err error
}

func (e *InstallationError) Error() string {
	switch {
	case e.Denied:
		return "helper installation was not authorized"
	case e.Err != nil:
		return "installing helper: " + e.Err.Error()
	default:
		return "installing helper failed: " + e.Output
	}
}

func (e *InstallationError) Unwrap() error { return e.Err }

// ConnectionError reports a failure to reach or talk to the daemon.
// Op names the step: "dial", "handshake", "request", "wait".
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("helper %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
