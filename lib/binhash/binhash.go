// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binhash

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/zeebo/blake3"
)

// Digest is a 256-bit BLAKE3 digest.
type Digest [32]byte

// HashFile computes the digest of the file at path.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return Digest{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// HashFiles digests a set of files as a unit. Each file contributes
// its base name and content digest, in name order, so the result
// changes when any file is renamed, added, removed, or modified, and
// does not depend on the order of paths.
func HashFiles(paths []string) (Digest, error) {
	sorted := slices.Clone(paths)
	slices.SortFunc(sorted, func(a, b string) int {
		switch {
		case filepath.Base(a) < filepath.Base(b):
			return -1
		case filepath.Base(a) > filepath.Base(b):
			return 1
		}
		return 0
	})

	hasher := blake3.New()
	for _, path := range sorted {
		digest, err := HashFile(path)
		if err != nil {
			return Digest{}, err
		}
		hasher.Write([]byte(filepath.Base(path)))
		hasher.Write([]byte{0})
		hasher.Write(digest[:])
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// FormatDigest returns the lowercase hex form of digest.
func FormatDigest(digest Digest) string {
	return hex.EncodeToString(digest[:])
}

// ParseDigest parses the output of FormatDigest.
func ParseDigest(hexString string) (Digest, error) {
	var digest Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing hash digest: %w", err)
	}
	if len(decoded) != len(digest) {
		return digest, fmt.Errorf("hash digest is %d bytes, want %d", len(decoded), len(digest))
	}
	copy(digest[:], decoded)
	return digest, nil
}
