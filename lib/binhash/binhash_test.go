// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/patchbay-dev/patchbay/lib/testutil"
)

func TestHashFile(t *testing.T) {
	t.Parallel()

	content := []byte("patchbay helper")
	path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "binary"), content, 0o755)

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := Digest(blake3.Sum256(content)); got != want {
		t.Errorf("HashFile = %x, want %x", got, want)
	}
}

func TestHashFileLarge(t *testing.T) {
	t.Parallel()

	content := make([]byte, 256*1024)
	for i := range content {
		content[i] = byte(i % 251)
	}
	path := testutil.WriteFile(t, filepath.Join(t.TempDir(), "large"), content, 0o644)

	got, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile: %v", err)
	}
	if want := Digest(blake3.Sum256(content)); got != want {
		t.Errorf("HashFile(256KiB) = %x, want %x", got, want)
	}
}

func TestHashFileNonexistent(t *testing.T) {
	t.Parallel()

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("HashFile of a missing file succeeded")
	}
}

func TestHashFiles(t *testing.T) {
	t.Parallel()

	directory := t.TempDir()
	a := testutil.WriteFile(t, filepath.Join(directory, "a"), []byte("one"), 0o644)
	b := testutil.WriteFile(t, filepath.Join(directory, "b"), []byte("two"), 0o644)

	forward, err := HashFiles([]string{a, b})
	if err != nil {
		t.Fatalf("HashFiles: %v", err)
	}
	reversed, err := HashFiles([]string{b, a})
	if err != nil {
		t.Fatalf("HashFiles: %v", err)
	}
	if forward != reversed {
		t.Error("HashFiles depends on argument order")
	}

	testutil.WriteFile(t, b, []byte("changed"), 0o644)
	changed, err := HashFiles([]string{a, b})
	if err != nil {
		t.Fatalf("HashFiles: %v", err)
	}
	if changed == forward {
		t.Error("HashFiles did not change when a file changed")
	}
}

func TestDigestRoundTrip(t *testing.T) {
	t.Parallel()

	digest := Digest(blake3.Sum256([]byte("x")))
	formatted := FormatDigest(digest)
	if len(formatted) != 64 || strings.ToLower(formatted) != formatted {
		t.Fatalf("FormatDigest = %q", formatted)
	}
	parsed, err := ParseDigest(formatted)
	if err != nil {
		t.Fatalf("ParseDigest: %v", err)
	}
	if parsed != digest {
		t.Errorf("ParseDigest(FormatDigest(d)) = %x, want %x", parsed, digest)
	}
}

func TestParseDigestInvalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "zz", "abcd", strings.Repeat("0", 66)} {
		if _, err := ParseDigest(input); err == nil {
			t.Errorf("ParseDigest(%q) succeeded", input)
		}
	}
}
