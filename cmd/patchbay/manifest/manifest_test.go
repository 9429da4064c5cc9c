// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"howett.net/plist"
)

func writePlist(t *testing.T, document map[string]any, format int) string {
	t.Helper()
	data, err := plist.Marshal(document, format)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), "Info.plist")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readPlist(t *testing.T, path string) (map[string]any, int) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var document map[string]any
	format, err := plist.Unmarshal(data, &document)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return document, format
}

func TestAuthorizeReplacesRequirement(t *testing.T) {
	t.Parallel()

	for _, format := range []int{plist.XMLFormat, plist.BinaryFormat} {
		path := writePlist(t, map[string]any{
			"CFBundleIdentifier": "com.example.Editor",
			privilegedExecutablesKey: map[string]any{
				"com.example.Editor.Helper": `anchor apple generic and certificate leaf[subject.OU] = "ABCDE12345"`,
				"com.example.Other":         "keep me",
			},
		}, format)

		if err := Authorize(path, "com.example.Editor.Helper"); err != nil {
			t.Fatalf("Authorize: %v", err)
		}

		document, gotFormat := readPlist(t, path)
		if gotFormat != format {
			t.Errorf("format = %d, want %d", gotFormat, format)
		}
		executables := document[privilegedExecutablesKey].(map[string]any)
		if got := executables["com.example.Editor.Helper"]; got != `identifier "com.example.Editor.Helper"` {
			t.Errorf("requirement = %q", got)
		}
		if got := executables["com.example.Other"]; got != "keep me" {
			t.Errorf("unrelated entry = %q, want preserved", got)
		}
		if document["CFBundleIdentifier"] != "com.example.Editor" {
			t.Error("unrelated key lost")
		}
	}
}

func TestAuthorizeCreatesDictionary(t *testing.T) {
	t.Parallel()

	path := writePlist(t, map[string]any{"CFBundleIdentifier": "com.example.Editor"}, plist.XMLFormat)
	if err := Authorize(path, "com.example.Helper"); err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	document, _ := readPlist(t, path)
	executables, ok := document[privilegedExecutablesKey].(map[string]any)
	if !ok || executables["com.example.Helper"] != Requirement("com.example.Helper") {
		t.Errorf("%s = %v", privilegedExecutablesKey, document[privilegedExecutablesKey])
	}
}

func TestAuthorizeRejectsWrongType(t *testing.T) {
	t.Parallel()

	path := writePlist(t, map[string]any{privilegedExecutablesKey: "not a dictionary"}, plist.XMLFormat)
	if err := Authorize(path, "com.example.Helper"); err == nil {
		t.Fatal("Authorize succeeded on a string-valued key")
	}
}

func TestAuthorizeMissingFile(t *testing.T) {
	t.Parallel()

	if err := Authorize(filepath.Join(t.TempDir(), "absent.plist"), "x"); !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}
