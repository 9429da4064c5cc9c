// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for patchbay.
//
// Configuration is loaded from a single file named by the
// PATCHBAY_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). Without either, [Default] applies unchanged. There
// is no directory search.
//
// Variable expansion is performed on path fields after loading:
// ${HOME}, ${PATCHBAY_TOOLS}, and ${VAR:-default} patterns are
// expanded. No other environment variables override config values.
//
// Key exports:
//
//   - [Config] -- master struct with Tools, Profiles, Discovery, Helper
//   - [Default] -- returns a Config with built-in defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other patchbay packages.
package config
