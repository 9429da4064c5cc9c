// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolstore

// Linux only allows unprivileged attributes in the user namespace.
const versionAttribute = "user.dev.patchbay.version"

func isNoAttribute(error) bool { return false }
