// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package target implements the commands that act on installed
// applications: list, plan, and inject.
package target
