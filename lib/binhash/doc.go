// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 content digests of files.
//
// The helper reports the digest of its own executable so the client can
// tell a stale installation from a current one, and the tool store
// falls back to a digest of its contents when the bundle carries no
// version attribute.
//
//   - [HashFile] streams one file through BLAKE3 with constant memory
//   - [HashFiles] combines several named files into one digest
//   - [FormatDigest] and [ParseDigest] convert to and from the
//     canonical hex form used on the wire and in logs
package binhash
