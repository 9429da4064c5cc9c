// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package target

import (
	"bytes"
	"strings"
	"testing"

	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/schema"
)

type toolMap map[string]string

func (m toolMap) Path(name string) (string, bool) {
	path, ok := m[name]
	return path, ok
}

func newPlanFormatter() *command.Formatter {
	return &command.Formatter{
		Target: schema.Target{
			Identifier:     "com.example.Editor",
			Name:           "Editor",
			ExecutableName: "Editor",
			BundlePath:     "/Applications/My Editor.app",
		},
		Tools: toolMap{
			"insert_dylib": "/tools/insert_dylib",
			"lib.dylib":    "/tools/lib.dylib",
		},
		Names: command.ToolNames{Rewriter: "insert_dylib", Library: "lib.dylib"},
	}
}

func TestPlanStagesAssumesBackupAfterBackupStage(t *testing.T) {
	t.Parallel()

	executable := "/Applications/My Editor.app/Contents/MacOS/Editor"
	exists := func(path string) bool { return path == executable }

	stages := planStages(newPlanFormatter(), command.TransportBash, exists)
	if len(stages) != len(schema.InjectionStages()) {
		t.Fatalf("got %d stages, want %d", len(stages), len(schema.InjectionStages()))
	}

	byStage := make(map[schema.Stage]stagePlan)
	for _, stage := range stages {
		byStage[stage.Stage] = stage
	}

	backup := byStage[schema.StageBackup]
	if len(backup.Commands) != 1 || !strings.HasPrefix(backup.Commands[0], "cp ") {
		t.Fatalf("backup commands = %q, want one cp", backup.Commands)
	}
	if !backup.Elevated[0] {
		t.Error("backup copy should be elevated")
	}

	insertion := byStage[schema.StageLibraryInsertion]
	if insertion.Failed {
		t.Fatalf("library insertion failed: %q", insertion.Commands)
	}
	if len(insertion.Commands) != 1 || !strings.Contains(insertion.Commands[0], `My\ Editor.app`) {
		t.Errorf("insertion commands = %q, want one bash-escaped rewrite", insertion.Commands)
	}
}

func TestPlanStagesWithoutExecutable(t *testing.T) {
	t.Parallel()

	stages := planStages(newPlanFormatter(), command.TransportNone, func(string) bool { return false })
	for _, stage := range stages {
		switch stage.Stage {
		case schema.StageBackup:
			if len(stage.Commands) != 0 || len(stage.Diagnostics) == 0 {
				t.Errorf("backup = %+v, want a note and no commands", stage)
			}
		case schema.StageLibraryInsertion:
			if !stage.Failed {
				t.Errorf("library insertion should fail without a backup")
			}
		}
	}
}

func TestParseTransport(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		want    command.Transport
		wantErr bool
	}{
		{"bash", command.TransportBash, false},
		{"applescript", command.TransportAppleScript, false},
		{"none", command.TransportNone, false},
		{"zsh", 0, true},
	}
	for _, test := range tests {
		got, err := parseTransport(test.name)
		if (err != nil) != test.wantErr {
			t.Errorf("parseTransport(%q) error = %v, wantErr %v", test.name, err, test.wantErr)
			continue
		}
		if !test.wantErr && got != test.want {
			t.Errorf("parseTransport(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestWritePlan(t *testing.T) {
	t.Parallel()

	var buffer bytes.Buffer
	err := writePlan(&buffer, []stagePlan{
		{Stage: schema.StageBackup, Description: "Backing up", Commands: []string{"cp a b"}, Elevated: []bool{true}},
		{Stage: schema.StageKeygen, Description: "Keygen", Commands: []string{}, Elevated: []bool{}},
	})
	if err != nil {
		t.Fatalf("writePlan: %v", err)
	}
	output := buffer.String()
	for _, want := range []string{"Backing up (backup)", "  # cp a b", "(nothing to do)"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
}
