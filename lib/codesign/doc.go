// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codesign resolves the code signing identity of an executable
// and checks it against a [Requirement].
//
// A requirement names three facts that must all hold: the signature
// chains to Apple's root, the signing identifier matches, and the
// leaf certificate's organizational unit (the team identifier) matches.
// The privileged helper uses this to admit only the patchbay client.
//
// Identities are read with /usr/bin/codesign, so resolution only works
// on macOS. Tests and other platforms supply their own [Resolver].
package codesign
