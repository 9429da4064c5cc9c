// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"

	"github.com/patchbay-dev/patchbay/lib/binhash"
)

func TestInfo(t *testing.T) {
	info := Info()
	if !strings.HasPrefix(info, Version+" (") {
		t.Errorf("Info() = %q, want prefix %q", info, Version+" (")
	}
	if !strings.Contains(Full(), info) {
		t.Errorf("Full() does not contain Info()")
	}
}

func TestSelfDigest(t *testing.T) {
	t.Parallel()

	digest, path, err := SelfDigest()
	if err != nil {
		t.Fatalf("SelfDigest: %v", err)
	}
	if path == "" {
		t.Error("SelfDigest returned an empty path")
	}
	if _, err := binhash.ParseDigest(digest); err != nil {
		t.Errorf("SelfDigest returned an unparseable digest %q: %v", digest, err)
	}
}
