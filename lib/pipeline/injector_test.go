// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/patchbay-dev/patchbay/lib/clock"
	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/elevation"
	"github.com/patchbay-dev/patchbay/lib/helper"
	"github.com/patchbay-dev/patchbay/lib/schema"
	"github.com/patchbay-dev/patchbay/lib/testutil"
)

const targetID = "com.example.Editor"

var testNames = command.ToolNames{
	Rewriter: "insert_dylib",
	Optool:   "optool",
	Library:  "libpatch.dylib",
	Keygen:   "keygen",
}

// fakeExecutor records each submitted sequence. step decides the
// outcome of the nth sequence (zero-based).
type fakeExecutor struct {
	mu        sync.Mutex
	sequences [][]command.Command
	aborted   bool
	resets    int

	step func(ctx context.Context, index int) error
}

func (e *fakeExecutor) SubmitSequence(ctx context.Context, commands []command.Command) ([]elevation.Result, error) {
	e.mu.Lock()
	index := len(e.sequences)
	e.sequences = append(e.sequences, commands)
	step := e.step
	e.mu.Unlock()

	if step != nil {
		if err := step(ctx, index); err != nil {
			return nil, err
		}
	}
	results := make([]elevation.Result, len(commands))
	for i, cmd := range commands {
		results[i] = elevation.Result{Command: cmd, Path: "local"}
	}
	return results, nil
}

func (e *fakeExecutor) Transport() command.Transport { return command.TransportBash }

func (e *fakeExecutor) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborted = true
}

func (e *fakeExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborted = false
	e.resets++
}

func (e *fakeExecutor) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sequences)
}

type targetMap map[string]schema.Target

func (m targetMap) Lookup(identifier string) (schema.Target, bool) {
	target, ok := m[identifier]
	return target, ok
}

type profileMap map[string]schema.TargetProfile

func (m profileMap) Resolve(target schema.Target) (schema.TargetProfile, bool) {
	profile, ok := m[target.Identifier]
	return profile, ok
}

type fakeTools struct {
	dir     string
	present []string
}

func (f fakeTools) Path(name string) (string, bool) {
	if !slices.Contains(f.present, name) {
		return "", false
	}
	return filepath.Join(f.dir, name), true
}

func (f fakeTools) Missing(names []string) []string {
	var missing []string
	for _, name := range names {
		if !slices.Contains(f.present, name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (f fakeTools) Version(names []string) (string, error) {
	return "blake3:0123456789abcdef", nil
}

type fixture struct {
	injector *Injector
	executor *fakeExecutor
	profiles profileMap
}

func newFixture(t *testing.T, profile schema.TargetProfile) *fixture {
	t.Helper()
	profile.Identifier = targetID
	executor := &fakeExecutor{}
	profiles := profileMap{targetID: profile}
	injector := New(Config{
		Targets: targetMap{targetID: {
			Identifier:     targetID,
			Name:           "Editor",
			Version:        "4.2",
			ExecutableName: "Editor",
			BundlePath:     "/Applications/Editor.app",
		}},
		Profiles: profiles,
		Tools: fakeTools{
			dir:     t.TempDir(),
			present: []string{testNames.Rewriter, testNames.Library},
		},
		Names:    testNames,
		Executor: executor,
		Components: func(string, []string) ([]string, []string) {
			return nil, nil
		},
		Exists:       func(string) bool { return true },
		ScratchDir:   t.TempDir(),
		BuildVersion: "v1.0.0",
		Clock:        clock.Fake(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
	})
	return &fixture{injector: injector, executor: executor, profiles: profiles}
}

func (f *fixture) wait(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-f.injector.Done():
	case <-ctx.Done():
		t.Fatal("run did not finish")
	}
}

func TestRunRecordsStagesInOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t, schema.TargetProfile{})

	if err := f.injector.Start(context.Background(), targetID, StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.wait(t)

	if err := f.injector.Err(); err != nil {
		t.Fatalf("run error: %v", err)
	}
	status := f.injector.Status()
	want := append([]schema.Stage{schema.StageStart}, schema.InjectionStages()...)
	want = append(want, schema.StageEnd)
	var got []schema.Stage
	for _, record := range status.Records {
		got = append(got, record.Stage)
		if record.Status != schema.StatusFinished {
			t.Errorf("stage %s status = %s, want finished", record.Stage, record.Status)
		}
	}
	if !slices.Equal(got, want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	if status.Progress != 1 {
		t.Errorf("progress = %v, want 1", status.Progress)
	}
	if status.Running || !status.Finished() {
		t.Errorf("running = %v, finished = %v", status.Running, status.Finished())
	}
	if status.TargetName != "Editor" || status.TargetVersion != "4.2" {
		t.Errorf("target = %q %q", status.TargetName, status.TargetVersion)
	}
	if calls := f.executor.calls(); calls != len(schema.InjectionStages()) {
		t.Errorf("executor sequences = %d, want %d", calls, len(schema.InjectionStages()))
	}
	if f.executor.resets != 1 {
		t.Errorf("executor resets = %d, want 1", f.executor.resets)
	}
}

func TestRunHaltsAtFirstFailure(t *testing.T) {
	t.Parallel()
	f := newFixture(t, schema.TargetProfile{})
	reSigning := slices.Index(schema.InjectionStages(), schema.StageReSigning)
	f.executor.step = func(_ context.Context, index int) error {
		if index == reSigning {
			return &elevation.CommandError{Command: "codesign", ExitCode: 1, Output: "resource fork detritus"}
		}
		return nil
	}

	if err := f.injector.Start(context.Background(), targetID, StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.wait(t)

	var commandError *elevation.CommandError
	if !errors.As(f.injector.Err(), &commandError) {
		t.Fatalf("run error = %v, want CommandError", f.injector.Err())
	}
	status := f.injector.Status()
	if status.Running {
		t.Error("run still marked running")
	}
	if got := status.StageStatus(schema.StageReSigning); got != schema.StatusError {
		t.Errorf("re-signing status = %s, want error", got)
	}
	for _, stage := range []schema.Stage{schema.StageExtraScript, schema.StageHelperDaemon, schema.StagePrivacyReset, schema.StageEnd} {
		if got := status.StageStatus(stage); got != schema.StatusPending {
			t.Errorf("stage %s status = %s, want pending", stage, got)
		}
	}
	if len(status.Records) != reSigning+2 {
		t.Errorf("records = %d, want %d", len(status.Records), reSigning+2)
	}
	if status.Progress != 1 {
		t.Errorf("progress = %v, want 1", status.Progress)
	}
	if status.Error == nil || status.Error.Kind != schema.ErrorKindCommand {
		t.Fatalf("run error = %+v, want command kind", status.Error)
	}
	if f.executor.calls() != reSigning+1 {
		t.Errorf("executor sequences = %d, want %d", f.executor.calls(), reSigning+1)
	}

	report, ok := f.injector.Report()
	if !ok {
		t.Fatal("no report for a failed run")
	}
	if report.Stage != schema.StageReSigning || report.Output != "resource fork detritus" {
		t.Errorf("report = %+v", report)
	}
	if report.ToolVersion != "blake3:0123456789abcdef" || report.BuildVersion != "v1.0.0" {
		t.Errorf("report versions = %q %q", report.ToolVersion, report.BuildVersion)
	}
}

func TestProgressIsMeanOfTouchedStages(t *testing.T) {
	t.Parallel()
	f := newFixture(t, schema.TargetProfile{})
	entered := make(chan struct{})
	release := make(chan struct{})
	f.executor.step = func(ctx context.Context, index int) error {
		if index == 1 {
			close(entered)
			<-release
		}
		return nil
	}

	if err := f.injector.Start(context.Background(), targetID, StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	testutil.RequireClosed(t, entered, 5*time.Second, "second stage never ran")

	// start=1, backup=1, permission-reset running at 0.
	status := f.injector.Status()
	want := 2.0 / 3.0
	if diff := status.Progress - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("progress = %v, want %v", status.Progress, want)
	}
	if got := status.StageStatus(schema.StagePermissionReset); got != schema.StatusRunning {
		t.Errorf("permission reset = %s, want running", got)
	}
	close(release)
	f.wait(t)
}

func TestStopClearsStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t, schema.TargetProfile{})
	entered := make(chan struct{})
	f.executor.step = func(ctx context.Context, index int) error {
		if index == 1 {
			close(entered)
			<-ctx.Done()
			return fmt.Errorf("%w: %w", elevation.ErrAborted, ctx.Err())
		}
		return nil
	}

	if err := f.injector.Start(context.Background(), targetID, StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	testutil.RequireClosed(t, entered, 5*time.Second, "second stage never ran")

	f.injector.Stop()
	f.wait(t)

	status := f.injector.Status()
	if status.Running || status.RunID != "" || len(status.Records) != 0 || status.Error != nil {
		t.Errorf("status after stop = %+v, want cleared", status)
	}
	if !f.executor.aborted {
		t.Error("executor was not aborted")
	}
	if !IsAborted(f.injector.Err()) {
		t.Errorf("Err = %v, want aborted", f.injector.Err())
	}
	if f.executor.calls() != 2 {
		t.Errorf("executor sequences = %d, want 2", f.executor.calls())
	}
}

func TestStartRejections(t *testing.T) {
	t.Parallel()

	t.Run("unknown target", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, schema.TargetProfile{})
		err := f.injector.Start(context.Background(), "com.example.Missing", StartOptions{})
		if !errors.Is(err, ErrUnknownTarget) {
			t.Fatalf("Start = %v, want ErrUnknownTarget", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, schema.TargetProfile{})
		delete(f.profiles, targetID)
		err := f.injector.Start(context.Background(), targetID, StartOptions{})
		if !errors.Is(err, ErrUnsupported) {
			t.Fatalf("Start = %v, want ErrUnsupported", err)
		}
	})

	t.Run("missing tools", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, schema.TargetProfile{KeygenRequired: true})
		err := f.injector.Start(context.Background(), targetID, StartOptions{})
		var missing *MissingToolsError
		if !errors.As(err, &missing) {
			t.Fatalf("Start = %v, want MissingToolsError", err)
		}
		if !slices.Equal(missing.Names, []string{testNames.Keygen}) {
			t.Errorf("missing = %v", missing.Names)
		}
		if f.executor.calls() != 0 || f.injector.Running() {
			t.Error("rejected start touched the executor")
		}
	})

	for _, test := range []struct {
		name    string
		profile schema.TargetProfile
		want    string
	}{
		{"missing entitlements", schema.TargetProfile{Entitlements: "app.entitlements"}, "app.entitlements"},
		{"missing extra script", schema.TargetProfile{ExtraScript: "fixup.sh"}, "fixup.sh"},
	} {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, test.profile)
			err := f.injector.Start(context.Background(), targetID, StartOptions{})
			var missing *MissingToolsError
			if !errors.As(err, &missing) {
				t.Fatalf("Start = %v, want MissingToolsError", err)
			}
			if !slices.Equal(missing.Names, []string{test.want}) {
				t.Errorf("missing = %v, want [%s]", missing.Names, test.want)
			}
			if f.executor.calls() != 0 || f.injector.Running() {
				t.Error("rejected start touched the executor")
			}
		})
	}

	t.Run("caveat declined", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, schema.TargetProfile{Caveat: "Sign-in stops working."})
		err := f.injector.Start(context.Background(), targetID, StartOptions{})
		if !errors.Is(err, ErrCaveatDeclined) {
			t.Fatalf("Start = %v, want ErrCaveatDeclined", err)
		}
	})

	t.Run("caveat accepted", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, schema.TargetProfile{Caveat: "Sign-in stops working."})
		var shown string
		err := f.injector.Start(context.Background(), targetID, StartOptions{
			Acknowledge: func(caveat string) bool {
				shown = caveat
				return true
			},
		})
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
		f.wait(t)
		if shown != "Sign-in stops working." {
			t.Errorf("caveat shown = %q", shown)
		}
	})

	t.Run("already running", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, schema.TargetProfile{})
		entered := make(chan struct{})
		release := make(chan struct{})
		f.executor.step = func(ctx context.Context, index int) error {
			if index == 0 {
				close(entered)
				<-release
			}
			return nil
		}
		if err := f.injector.Start(context.Background(), targetID, StartOptions{}); err != nil {
			t.Fatalf("Start: %v", err)
		}
		testutil.RequireClosed(t, entered, 5*time.Second, "first stage never ran")
		if err := f.injector.Start(context.Background(), targetID, StartOptions{}); !errors.Is(err, ErrRunning) {
			t.Errorf("second Start = %v, want ErrRunning", err)
		}
		close(release)
		f.wait(t)
	})
}

func TestSubscribeSeesFinalStatus(t *testing.T) {
	t.Parallel()
	f := newFixture(t, schema.TargetProfile{})
	updates, cancel := f.injector.Subscribe()
	defer cancel()

	if err := f.injector.Start(context.Background(), targetID, StartOptions{}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	f.wait(t)

	deadline := time.After(5 * time.Second)
	for {
		select {
		case status := <-updates:
			if status.Finished() && !status.Running {
				return
			}
		case <-deadline:
			t.Fatal("never observed the finished status")
		}
	}
}

func TestExtraScriptIsPrepared(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "fixup.sh"), []byte("insert_dylib --weak x\n"), 0o644)
	testutil.WriteFile(t, filepath.Join(dir, testNames.Rewriter), []byte("#!/bin/sh\n"), 0o755)

	f := newFixture(t, schema.TargetProfile{ExtraScript: "fixup.sh"})
	f.injector.config.Tools = fakeTools{dir: dir, present: []string{"fixup.sh", testNames.Rewriter, testNames.Library}}

	formatter, _, cleanup, err := f.injector.Formatter(targetID)
	if err != nil {
		t.Fatalf("Formatter: %v", err)
	}
	defer cleanup()
	if formatter.ExtraScriptPath == "" {
		t.Fatal("extra script was not prepared")
	}
	if filepath.Dir(formatter.ExtraScriptPath) == dir {
		t.Error("extra script was not copied out of tool storage")
	}
	plan := formatter.Plan(schema.StageExtraScript, command.TransportBash)
	if plan.Failed() {
		t.Fatalf("plan failed: %v", plan.Commands)
	}
}

func TestRewriteToolNames(t *testing.T) {
	t.Parallel()
	pairs := []string{"insert_dylib", "/tools/insert_dylib", "libpatch.dylib", "/tools/libpatch.dylib"}
	tests := []struct {
		name, input, want string
	}{
		{"bare", "insert_dylib --weak libpatch.dylib x\n", "/tools/insert_dylib --weak /tools/libpatch.dylib x\n"},
		{"already a path", "/usr/local/bin/insert_dylib a\n", "/usr/local/bin/insert_dylib a\n"},
		{"longer word", "insert_dylib2 a\n", "insert_dylib2 a\n"},
		{"quoted", `cp "libpatch.dylib" .` + "\n", `cp "/tools/libpatch.dylib" .` + "\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			if got := rewriteToolNames(test.input, pairs); got != test.want {
				t.Errorf("rewriteToolNames(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want schema.ErrorKind
	}{
		{"precondition", &elevation.PreconditionError{Message: "backup missing"}, schema.ErrorKindPrecondition},
		{"credential", &elevation.CredentialError{Denied: true}, schema.ErrorKindCredential},
		{"installation", &helper.InstallationError{Denied: true}, schema.ErrorKindInstallation},
		{"connection", &helper.ConnectionError{Op: "handshake", Err: errors.New("EOF")}, schema.ErrorKindConnection},
		{"command", &elevation.CommandError{Command: "false", ExitCode: 1}, schema.ErrorKindCommand},
		{"wrapped command", fmt.Errorf("stage: %w", &elevation.CommandError{ExitCode: 2}), schema.ErrorKindCommand},
		{"aborted", elevation.ErrAborted, schema.ErrorKindAborted},
		{"cancelled", context.Canceled, schema.ErrorKindAborted},
		{"other", errors.New("boom"), schema.ErrorKindInternal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			got := classify(schema.StageBackup, test.err)
			if got.Kind != test.want {
				t.Errorf("kind = %s, want %s", got.Kind, test.want)
			}
			if got.Stage != schema.StageBackup || !strings.Contains(got.Message, test.err.Error()) {
				t.Errorf("run error = %+v", got)
			}
		})
	}
}
