// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package credential holds the administrator password for the
// lifetime of the process.
//
// The [Cache] is process-wide and single-writer: the operator enters
// the password through one prompt flow, and the elevation executor is
// the only reader. The password is kept sealed (encrypted in guarded
// memory) between uses and is never written to disk. [Cache.Use]
// decrypts it for the duration of one callback.
package credential
