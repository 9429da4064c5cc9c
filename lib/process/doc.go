// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the patchbay
// binaries. It centralizes the raw stderr write that happens before
// the structured logger exists, and the exit-code convention shared by
// patchbay and patchbay-helper.
package process
