// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Patchbay's CBOR encoding configuration for the
// privileged helper protocol.
//
// JSON is used for everything an operator reads or writes (profiles,
// CLI output). CBOR is used on the helper socket, where both ends are
// Patchbay binaries. The encoder uses Core Deterministic Encoding
// (RFC 8949 §4.2) so the same message always produces the same bytes.
// The decoder bounds nesting and collection sizes because it runs as
// root on input from another process.
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Struct tags: wire types use `cbor:"name"` tags. Types shared with
// JSON may rely on json tags, which fxamacker/cbor honors as a
// fallback.
package codec
