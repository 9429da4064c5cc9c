// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell runs one local process and captures its combined
// output. It is shared by the unprivileged side of the elevation
// executor and by the privileged helper, which run their commands the
// same way: one process group per command, stdout and stderr
// interleaved into a single buffer, and a non-zero exit reported as a
// result rather than an error.
package shell
