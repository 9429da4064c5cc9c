// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package peercred identifies the process on the other end of a Unix
// socket using credentials issued by the kernel, which the peer cannot
// forge.
//
// On Linux the credentials come from SO_PEERCRED and the executable
// from /proc/<pid>/exe. On macOS the PID comes from LOCAL_PEERPID, the
// user from LOCAL_PEERCRED, and the executable path from the
// kern.procargs2 sysctl. Other platforms fail closed.
//
// The executable path is resolved from the PID after the fact. A peer
// that exits and whose PID is reused between accept and lookup would
// be misattributed; callers verify the identity once per connection,
// immediately after accept, which keeps that window small.
package peercred
