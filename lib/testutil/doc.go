// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Patchbay packages.
//
// [SocketDir] creates a short temporary directory in /tmp suitable for
// Unix sockets, whose paths are limited to about 104 bytes on macOS.
// [RequireReceive] and [RequireClosed] bound channel operations with a
// timeout so a broken test fails instead of hanging. [WriteFile]
// creates fixture files with their parent directories.
package testutil
