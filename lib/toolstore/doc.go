// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolstore locates the external tools a run depends on (the
// load-command rewriter, the shared library, the key generator,
// entitlements files, and extra scripts) in a local directory.
//
// Tools are placed there by the operator; patchbay never downloads
// them. A tool may carry its release version in an extended attribute.
// When the set of tools does not agree on one, the store reports a
// digest of their contents instead so error reports still identify
// exactly which tools were used.
package toolstore
