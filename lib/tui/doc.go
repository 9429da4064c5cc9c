// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui renders a patchbay run in the terminal. Built on
// bubbletea (Elm architecture), [RunModel] follows the injector's
// status stream: one row per stage with a spinner on the running
// stage, an overall progress bar, and a brief tint on rows whose
// status just changed.
//
// The model never drives the run itself. It receives snapshots on a
// channel and calls a stop function when the operator quits early.
package tui
