// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/patchbay-dev/patchbay/lib/binhash"
)

// DigestPrefix marks a version computed from tool contents.
const DigestPrefix = "blake3:"

// Store is a directory of tools addressed by file name.
type Store struct {
	Dir string
}

// DefaultDir returns the per-user tool directory.
func DefaultDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating user configuration directory: %w", err)
	}
	return filepath.Join(base, "patchbay", "tools"), nil
}

// Path returns the location of the named tool if it is present. Names
// are plain file names; anything that would escape the directory is
// treated as absent.
func (s Store) Path(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", false
	}
	path := filepath.Join(s.Dir, name)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return path, true
}

// Missing returns the names that are not present, in the order given.
func (s Store) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if _, ok := s.Path(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// ToolVersion returns the version recorded on one tool, or "" when it
// carries none.
func (s Store) ToolVersion(name string) (string, error) {
	path, ok := s.Path(name)
	if !ok {
		return "", fmt.Errorf("tool %q is not in %s", name, s.Dir)
	}
	return readVersion(path)
}

// SetToolVersion records version on the named tool.
func (s Store) SetToolVersion(name, version string) error {
	path, ok := s.Path(name)
	if !ok {
		return fmt.Errorf("tool %q is not in %s", name, s.Dir)
	}
	if err := unix.Setxattr(path, versionAttribute, []byte(version), 0); err != nil {
		return fmt.Errorf("recording version on %s: %w", path, err)
	}
	return nil
}

// Version describes the present tools among names. When every one
// records the same version attribute, that version is returned;
// otherwise the result is DigestPrefix followed by the leading hex of
// a digest over their contents.
func (s Store) Version(names []string) (string, error) {
	var paths []string
	var agreed string
	consistent := true
	for _, name := range names {
		path, ok := s.Path(name)
		if !ok {
			continue
		}
		paths = append(paths, path)
		version, err := readVersion(path)
		if err != nil {
			return "", err
		}
		switch {
		case version == "":
			consistent = false
		case agreed == "":
			agreed = version
		case agreed != version:
			consistent = false
		}
	}
	if len(paths) == 0 {
		return "", errors.New("no tools present")
	}
	if consistent && agreed != "" {
		return agreed, nil
	}

	digest, err := binhash.HashFiles(paths)
	if err != nil {
		return "", err
	}
	return DigestPrefix + binhash.FormatDigest(digest)[:16], nil
}

func readVersion(path string) (string, error) {
	buffer := make([]byte, 256)
	size, err := unix.Getxattr(path, versionAttribute, buffer)
	if err != nil {
		if errors.Is(err, unix.ENODATA) || errors.Is(err, unix.ENOTSUP) || errors.Is(err, unix.EOPNOTSUPP) || isNoAttribute(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading version attribute of %s: %w", path, err)
	}
	return strings.TrimRight(string(buffer[:size]), "\x00\n "), nil
}
