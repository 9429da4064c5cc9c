// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package helper implements the privileged channel: a root daemon
// managed by launchd that runs shell commands for the patchbay client,
// and the client that installs and talks to it.
//
// The daemon listens on [SocketPath]. For every accepted connection it
// reads the peer's credentials from the kernel, resolves the peer
// executable's code signature, and checks it against the client
// requirement. A peer that fails is disconnected before anything is
// written to it. A verified peer receives an [ipc.Hello] and may then
// send any number of requests on the same connection, one at a time.
//
// The client installs the daemon at most once per [Client], through
// the system administrator authorization dialog, and keeps one
// connection open across stages. Any transport failure drops the
// connection; the next request reconnects and is verified again.
package helper
