// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"bytes"
	"strings"
	"testing"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

type profileMap map[string]schema.TargetProfile

func (m profileMap) Resolve(target schema.Target) (schema.TargetProfile, bool) {
	profile, ok := m[target.Identifier]
	return profile, ok
}

func TestListEntries(t *testing.T) {
	t.Parallel()

	targets := []schema.Target{
		{Identifier: "com.example.Editor", Name: "Editor", Version: "2.1", ExecutableName: "Editor", BundlePath: "/Applications/Editor.app"},
		{Identifier: "com.example.Viewer", Name: "Viewer", Version: "1.0", ExecutableName: "Viewer", BundlePath: "/Applications/Viewer.app"},
		{Identifier: "com.example.Other", Name: "Other", Version: "3", ExecutableName: "Other", BundlePath: "/Applications/Other.app"},
	}
	profiles := profileMap{
		"com.example.Editor": {Identifier: "com.example.Editor"},
		"com.example.Viewer": {Identifier: "com.example.Viewer", Caveat: "needs a restart"},
	}
	exists := func(path string) bool {
		return path == "/Applications/Editor.app/Contents/MacOS/Editor.backup"
	}

	supported := listEntries(targets, profiles, exists, false)
	if len(supported) != 2 {
		t.Fatalf("got %d entries, want 2", len(supported))
	}
	if !supported[0].Injected {
		t.Error("Editor has a backup and should be reported injected")
	}
	if supported[1].Injected || supported[1].Caveat != "needs a restart" {
		t.Errorf("Viewer entry = %+v", supported[1])
	}

	all := listEntries(targets, profiles, exists, true)
	if len(all) != 3 || all[2].Supported {
		t.Fatalf("--all entries = %+v, want three with Other unsupported", all)
	}
}

func TestWriteList(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	if err := writeList(&buffer, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buffer.String(), "No supported applications") {
		t.Errorf("empty list output = %q", buffer.String())
	}

	buffer.Reset()
	err := writeList(&buffer, []listEntry{
		{Identifier: "com.example.Editor", Name: "Editor", Version: "2.1", Supported: true, Injected: true},
		{Identifier: "com.example.Viewer", Name: "Viewer", Version: "1.0", Supported: true, Caveat: "x"},
	})
	if err != nil {
		t.Fatal(err)
	}
	output := buffer.String()
	for _, want := range []string{"NAME", "patched", "supported (caveat)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}
