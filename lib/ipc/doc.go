// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ipc defines the CBOR-encoded messages exchanged between the
// patchbay CLI and the privileged helper over the helper's Unix
// socket. Both cmd/patchbay and cmd/patchbay-helper import this
// package so the wire types are defined once.
//
// A connection carries one [Hello] from the helper, sent only after the
// peer's code identity has been verified, followed by any number of
// [Request]/[Response] pairs in lockstep.
package ipc
