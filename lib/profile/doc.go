// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package profile loads target profiles from a profile catalog file.
//
// The catalog is JSON with comments and trailing commas allowed. Its
// layout is the community "AppList" format: one entry per application,
// where packageName is a bundle identifier or a list of them, and the
// remaining keys describe how to modify the bundle. Each identifier of
// an entry becomes one [schema.TargetProfile].
//
// A target whose identifier changed between releases still resolves
// when its bundle sits at the location an entry declares in
// appBaseLocate.
//
// [Source.Watch] reloads the catalog whenever the file changes on disk.
// A file that fails to parse leaves the previous catalog in place.
package profile
