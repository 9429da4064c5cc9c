// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

func runningStatus(records ...schema.StageRecord) schema.RunStatus {
	status := schema.RunStatus{
		RunID:         "run-1",
		TargetID:      "com.example.Editor",
		TargetName:    "Editor",
		TargetVersion: "4.2",
		Running:       true,
	}
	for _, record := range records {
		status.Apply(record)
	}
	return status
}

func newTestModel(stop func()) RunModel {
	model := NewRunModel(make(chan schema.RunStatus), stop)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	model.now = func() time.Time { return now }
	return model
}

func update(t *testing.T, model RunModel, message tea.Msg) (RunModel, tea.Cmd) {
	t.Helper()
	next, command := model.Update(message)
	runModel, ok := next.(RunModel)
	if !ok {
		t.Fatalf("Update returned %T, want RunModel", next)
	}
	return runModel, command
}

func TestRunModelRendersStages(t *testing.T) {
	t.Parallel()
	model := newTestModel(nil)
	model, _ = update(t, model, statusMsg{status: runningStatus(
		schema.StageRecord{Stage: schema.StageStart, Status: schema.StatusFinished, Progress: 1},
		schema.StageRecord{Stage: schema.StageBackup, Status: schema.StatusRunning},
	)})

	view := model.View()
	for _, want := range []string{"Editor 4.2", schema.StageBackup.Description(), schema.StagePrivacyReset.Description(), "✓"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if model.ended {
		t.Error("model ended while the run is running")
	}
	if model.heat.Heat(schema.StageBackup, model.now()) == 0 {
		t.Error("changed stage was not ignited")
	}
}

func TestRunModelQuitsWhenRunEnds(t *testing.T) {
	t.Parallel()
	model := newTestModel(nil)
	model, _ = update(t, model, statusMsg{status: runningStatus(
		schema.StageRecord{Stage: schema.StageStart, Status: schema.StatusFinished, Progress: 1},
	)})

	failed := runningStatus(
		schema.StageRecord{Stage: schema.StageStart, Status: schema.StatusFinished, Progress: 1},
		schema.StageRecord{Stage: schema.StageBackup, Status: schema.StatusError, Progress: 1, Error: &schema.RunError{
			Stage: schema.StageBackup, Kind: schema.ErrorKindCommand, Message: "cp: permission denied",
		}},
	)
	failed.Running = false
	model, command := update(t, model, statusMsg{status: failed})

	if !model.ended {
		t.Fatal("model did not end after the run failed")
	}
	if command == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Error("command is not tea.Quit")
	}
	if !strings.Contains(model.View(), "cp: permission denied") {
		t.Errorf("view does not show the failure:\n%s", model.View())
	}
	if model.heat.Kind(schema.StageBackup) != HeatRemove {
		t.Error("failed stage not tinted as a failure")
	}
}

func TestRunModelEndsOnFastRun(t *testing.T) {
	t.Parallel()
	model := newTestModel(nil)
	finished := runningStatus(
		schema.StageRecord{Stage: schema.StageStart, Status: schema.StatusFinished, Progress: 1},
		schema.StageRecord{Stage: schema.StageEnd, Status: schema.StatusFinished, Progress: 1},
	)
	finished.Running = false
	model, _ = update(t, model, statusMsg{status: finished})
	if !model.ended {
		t.Error("a finished snapshot seen first did not end the model")
	}
}

func TestRunModelIgnoresIdleSnapshot(t *testing.T) {
	t.Parallel()
	model := newTestModel(nil)
	model, _ = update(t, model, statusMsg{status: schema.RunStatus{}})
	if model.ended {
		t.Error("an idle snapshot before the run started ended the model")
	}
}

func TestRunModelStopKey(t *testing.T) {
	t.Parallel()
	stopped := false
	model := newTestModel(func() { stopped = true })
	model, _ = update(t, model, statusMsg{status: runningStatus()})

	model, command := update(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !stopped || !model.Stopped() {
		t.Error("stop key did not stop the run")
	}
	if command == nil {
		t.Fatal("expected a quit command")
	}
}

func TestRunModelWindowResizeTruncates(t *testing.T) {
	t.Parallel()
	model := newTestModel(nil)
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 20, Height: 10})
	status := runningStatus(schema.StageRecord{Stage: schema.StageBackup, Status: schema.StatusError, Error: &schema.RunError{
		Stage: schema.StageBackup, Kind: schema.ErrorKindCommand, Message: strings.Repeat("x", 200),
	}})
	model, _ = update(t, model, statusMsg{status: status})

	row := model.renderRow(schema.StageBackup, model.now().Add(time.Hour))
	if !strings.Contains(row, "…") {
		t.Errorf("long row not truncated: %q", row)
	}
}

func TestHeatTracker(t *testing.T) {
	t.Parallel()
	tracker := NewHeatTracker()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tracker.Ignite(schema.StageBackup, HeatPut, start)
	if heat := tracker.Heat(schema.StageBackup, start); heat != 1 {
		t.Errorf("heat at ignition = %v, want 1", heat)
	}
	half := tracker.Heat(schema.StageBackup, start.Add(HeatDecayDuration/2))
	if half < 0.49 || half > 0.51 {
		t.Errorf("heat at half decay = %v, want 0.5", half)
	}
	if tracker.Heat(schema.StageReSigning, start) != 0 {
		t.Error("untouched stage has heat")
	}
	if !tracker.HasHot(start) {
		t.Error("HasHot false right after ignition")
	}
	if tracker.HasHot(start.Add(HeatDecayDuration)) {
		t.Error("HasHot true after full decay")
	}
}
