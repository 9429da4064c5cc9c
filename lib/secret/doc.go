// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret provides guarded memory for sensitive data such as
// the administrator password.
//
// [Buffer] wraps a memguard LockedBuffer: the bytes live in memory
// outside the Go heap, locked against swapping, bracketed by guard
// pages, and wiped on Close. [Sealed] wraps a memguard Enclave, which
// keeps the value encrypted while it is not in use; [Sealed.Open]
// decrypts it into a fresh [Buffer] for the duration of one use.
//
// Constructors:
//
//   - [NewFromBytes] -- copies into protected memory, wipes the source
//   - [Seal] -- encrypts into an enclave, wipes the source
//   - [ReadFromPath] -- reads a file or stdin, trimming whitespace
//
// After Close any access to a Buffer panics. Close is idempotent.
//
// Depends on github.com/awnumar/memguard. No Patchbay-internal
// dependencies.
package secret
