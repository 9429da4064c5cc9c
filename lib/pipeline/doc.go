// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline drives an injection run: it resolves a target and
// its profile, checks that the run can start, then formats and
// executes each stage in order while publishing an observable
// [schema.RunStatus].
//
// Stages are planned immediately before they execute, so the
// formatter's existence checks see the effects of earlier stages. The
// first stage that fails ends the run; later stages are never touched
// and stay pending. The failed status is kept until Stop or the next
// Start.
//
// Stop abandons the current run. Commands already queued are skipped;
// a command that is executing finishes, but nothing it reports is
// recorded.
package pipeline
