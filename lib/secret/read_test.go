// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadFromPath_File(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{name: "plain value", content: "my-password", expected: "my-password"},
		{name: "trailing newline", content: "my-password\n", expected: "my-password"},
		{name: "surrounding whitespace", content: "  my-password  \n", expected: "my-password"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(tempDir, test.name)
			if err := os.WriteFile(path, []byte(test.content), 0600); err != nil {
				t.Fatalf("writing test file: %v", err)
			}

			result, err := ReadFromPath(path)
			if err != nil {
				t.Fatalf("ReadFromPath() error: %v", err)
			}
			defer result.Close()
			if result.String() != test.expected {
				t.Errorf("ReadFromPath() = %q, want %q", result.String(), test.expected)
			}
		})
	}
}

func TestReadFromPath_FileNotFound(t *testing.T) {
	if _, err := ReadFromPath("/nonexistent/path/to/secret"); err == nil {
		t.Error("ReadFromPath() with nonexistent file should return error")
	}
}

func TestReadFromPath_WhitespaceOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "whitespace")
	if err := os.WriteFile(path, []byte("  \n\t\n"), 0600); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	if _, err := ReadFromPath(path); err == nil {
		t.Error("ReadFromPath() with whitespace-only file should return error")
	}
}

func TestReadLine_FirstLineOnly(t *testing.T) {
	result, err := ReadLine(strings.NewReader("first\nsecond\n"))
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	defer result.Close()
	if result.String() != "first" {
		t.Errorf("ReadLine() = %q, want %q", result.String(), "first")
	}
}
