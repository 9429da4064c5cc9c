// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package appscan discovers installed application bundles and reads
// their Info.plist metadata.
//
// A scan lists each root directory (by default /Applications and
// /Applications/Setapp), reads every .app bundle found there, and
// descends one level into folders whose names start with "Adobe",
// which is where those suites install their applications. Bundles
// that cannot be read are skipped.
package appscan
