// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/patchbay-dev/patchbay/lib/appscan"
	"github.com/patchbay-dev/patchbay/lib/clock"
	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/elevation"
	"github.com/patchbay-dev/patchbay/lib/schema"
)

// Executor runs stage commands. Implemented by *elevation.Executor.
type Executor interface {
	SubmitSequence(ctx context.Context, commands []command.Command) ([]elevation.Result, error)
	Transport() command.Transport
	Abort()
	Reset()
}

// Targets looks up installed targets. Implemented by *appscan.Index.
type Targets interface {
	Lookup(identifier string) (schema.Target, bool)
}

// Profiles matches targets to profiles. Implemented by *profile.Source
// and *profile.Catalog.
type Profiles interface {
	Resolve(target schema.Target) (schema.TargetProfile, bool)
}

// Tools is the tool storage. Implemented by toolstore.Store.
type Tools interface {
	command.Locator
	Missing(names []string) []string
	Version(names []string) (string, error)
}

// Config holds the injector's collaborators.
type Config struct {
	Targets  Targets
	Profiles Profiles
	Tools    Tools
	Names    command.ToolNames
	Executor Executor

	// Components reads component bundle identifiers. Defaults to
	// appscan.ComponentIdentifiers.
	Components func(bundle string, components []string) (identifiers, missing []string)

	// Exists is handed to the formatter. Defaults to command.OSExister.
	Exists command.Exister

	// User is the login name for the key generator.
	User string

	// ManifestEditor is the patchbay binary run as root to rewrite
	// helper manifests.
	ManifestEditor string

	// ScratchDir holds the private copies of extra scripts. Defaults to
	// os.TempDir().
	ScratchDir string

	BuildVersion string

	Clock  clock.Clock
	Logger *slog.Logger
}

// StartOptions are per-run choices.
type StartOptions struct {
	// Acknowledge is shown the profile's caveat and reports whether
	// the operator accepts it. A nil Acknowledge declines every caveat.
	Acknowledge func(caveat string) bool
}

// Injector runs one target at a time.
type Injector struct {
	config Config

	// startMu serializes Start so acknowledgement prompts never run
	// under mu.
	startMu sync.Mutex

	mu          sync.Mutex
	status      schema.RunStatus
	running     bool
	runID       string
	cancel      context.CancelFunc
	done        chan struct{}
	err         error
	toolVersion string

	subscribers    map[int]chan schema.RunStatus
	nextSubscriber int
}

// New returns an idle injector.
func New(config Config) *Injector {
	if config.Components == nil {
		config.Components = appscan.ComponentIdentifiers
	}
	if config.Exists == nil {
		config.Exists = command.OSExister
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	done := make(chan struct{})
	close(done)
	return &Injector{
		config:      config,
		done:        done,
		subscribers: make(map[int]chan schema.RunStatus),
	}
}

// Formatter builds the formatter for targetID without starting a run.
// The returned cleanup removes the prepared extra script.
func (i *Injector) Formatter(targetID string) (*command.Formatter, schema.TargetProfile, func(), error) {
	target, ok := i.config.Targets.Lookup(targetID)
	if !ok {
		return nil, schema.TargetProfile{}, nil, fmt.Errorf("%w: %s", ErrUnknownTarget, targetID)
	}
	profile, ok := i.config.Profiles.Resolve(target)
	if !ok {
		return nil, schema.TargetProfile{}, nil, fmt.Errorf("%w: %s", ErrUnsupported, targetID)
	}

	components, missing := i.config.Components(target.BundlePath, profile.Components)
	if len(missing) > 0 {
		i.config.Logger.Warn("component bundles not readable", "target", targetID, "components", missing)
	}

	formatter := &command.Formatter{
		Profile:              profile,
		Target:               target,
		Tools:                i.config.Tools,
		Names:                i.config.Names,
		ComponentIdentifiers: components,
		User:                 i.config.User,
		ManifestEditor:       i.config.ManifestEditor,
		Exists:               i.config.Exists,
	}
	cleanup := func() {}
	if profile.ExtraScript != "" {
		path, remove, err := prepareScript(i.config.Tools, i.config.Names, profile.ExtraScript, i.config.ScratchDir)
		if err != nil {
			// The extra-script stage reports the missing script.
			i.config.Logger.Warn("extra script not prepared", "script", profile.ExtraScript, "error", err)
		} else {
			formatter.ExtraScriptPath = path
			cleanup = remove
		}
	}
	return formatter, profile, cleanup, nil
}

// Start validates and begins a run for targetID. It returns once the
// run is accepted; stages execute in the background.
func (i *Injector) Start(ctx context.Context, targetID string, options StartOptions) error {
	i.startMu.Lock()
	defer i.startMu.Unlock()

	if i.Running() {
		return ErrRunning
	}

	formatter, profile, cleanup, err := i.Formatter(targetID)
	if err != nil {
		return err
	}
	required := i.config.Names.Required(profile)
	if missing := i.config.Tools.Missing(required); len(missing) > 0 {
		cleanup()
		return &MissingToolsError{Names: missing}
	}
	if profile.Caveat != "" && (options.Acknowledge == nil || !options.Acknowledge(profile.Caveat)) {
		cleanup()
		return ErrCaveatDeclined
	}

	toolVersion, err := i.config.Tools.Version(required)
	if err != nil {
		toolVersion = "unknown"
	}

	i.config.Executor.Reset()
	runContext, cancel := context.WithCancel(context.WithoutCancel(ctx))
	runID := uuid.NewString()
	done := make(chan struct{})
	now := i.config.Clock.Now()

	i.mu.Lock()
	i.running = true
	i.runID = runID
	i.cancel = cancel
	i.done = done
	i.err = nil
	i.toolVersion = toolVersion
	i.status = schema.RunStatus{
		RunID:         runID,
		TargetID:      formatter.Target.Identifier,
		TargetName:    formatter.Target.Name,
		TargetVersion: formatter.Target.Version,
		Running:       true,
		StartedAt:     now,
		UpdatedAt:     now,
	}
	i.applyLocked(schema.StageRecord{
		Stage:    schema.StageStart,
		Status:   schema.StatusFinished,
		Message:  schema.StageStart.Description(),
		Progress: 1,
	})
	i.mu.Unlock()

	i.config.Logger.Info("run started",
		"run_id", runID,
		"target", formatter.Target.Identifier,
		"version", formatter.Target.Version,
		"tools", toolVersion,
	)
	go func() {
		defer close(done)
		defer cleanup()
		i.run(runContext, runID, formatter)
	}()
	return nil
}

func (i *Injector) run(ctx context.Context, runID string, formatter *command.Formatter) {
	logger := i.config.Logger.With("run_id", runID)
	for _, stage := range schema.InjectionStages() {
		if ctx.Err() != nil {
			return
		}
		i.update(runID, schema.StageRecord{
			Stage:   stage,
			Status:  schema.StatusRunning,
			Message: stage.Description(),
		})

		plan := formatter.Plan(stage, i.config.Executor.Transport())
		for _, diagnostic := range plan.Diagnostics {
			logger.Info("stage note", "stage", stage, "note", diagnostic)
		}
		logger.Info("stage started", "stage", stage, "commands", len(plan.Commands))

		if _, err := i.config.Executor.SubmitSequence(ctx, plan.Commands); err != nil {
			runError := classify(stage, err)
			logger.Error("stage failed", "stage", stage, "kind", runError.Kind, "error", err)
			i.update(runID, schema.StageRecord{
				Stage:    stage,
				Status:   schema.StatusError,
				Message:  "Error: " + runError.Message,
				Progress: 1,
				Error:    runError,
			})
			i.finish(runID, err)
			return
		}
		i.update(runID, schema.StageRecord{
			Stage:    stage,
			Status:   schema.StatusFinished,
			Message:  stage.Description(),
			Progress: 1,
		})
	}

	i.update(runID, schema.StageRecord{
		Stage:    schema.StageEnd,
		Status:   schema.StatusFinished,
		Message:  schema.StageEnd.Description(),
		Progress: 1,
	})
	logger.Info("run finished")
	i.finish(runID, nil)
}

// update applies record if runID is still the current run.
func (i *Injector) update(runID string, record schema.StageRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.running || i.runID != runID {
		return
	}
	i.applyLocked(record)
}

func (i *Injector) applyLocked(record schema.StageRecord) {
	i.status.Apply(record)
	i.status.UpdatedAt = i.config.Clock.Now()
	i.publishLocked()
}

func (i *Injector) finish(runID string, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.runID != runID {
		return
	}
	i.running = false
	i.err = err
	i.status.Running = false
	i.status.UpdatedAt = i.config.Clock.Now()
	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.publishLocked()
}

// Stop abandons the current run and clears the status.
func (i *Injector) Stop() {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cancel != nil {
		i.cancel()
		i.cancel = nil
	}
	i.config.Executor.Abort()
	if i.running {
		i.config.Logger.Info("run stopped", "run_id", i.runID)
		i.err = elevation.ErrAborted
	}
	i.running = false
	i.runID = ""
	i.status = schema.RunStatus{}
	i.publishLocked()
}

// Running reports whether a run is in progress.
func (i *Injector) Running() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.running
}

// Status returns a snapshot of the current run.
func (i *Injector) Status() schema.RunStatus {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.status.Clone()
}

// Done is closed when the most recently started run's goroutine exits.
func (i *Injector) Done() <-chan struct{} {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.done
}

// Err returns the error that ended the last run, nil after success.
func (i *Injector) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Report describes the current run's failure, if it has one.
func (i *Injector) Report() (schema.ErrorReport, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.status.Error == nil {
		return schema.ErrorReport{}, false
	}
	return schema.ErrorReport{
		RunID:         i.status.RunID,
		TargetID:      i.status.TargetID,
		TargetName:    i.status.TargetName,
		TargetVersion: i.status.TargetVersion,
		Stage:         i.status.Error.Stage,
		Kind:          i.status.Error.Kind,
		Message:       i.status.Error.Message,
		Output:        i.status.Error.Output,
		ToolVersion:   i.toolVersion,
		BuildVersion:  i.config.BuildVersion,
	}, true
}

// Subscribe returns a channel that receives the latest status after
// every change. A slow reader sees only the most recent snapshot. Call
// the returned function to unsubscribe.
func (i *Injector) Subscribe() (<-chan schema.RunStatus, func()) {
	i.mu.Lock()
	defer i.mu.Unlock()

	id := i.nextSubscriber
	i.nextSubscriber++
	updates := make(chan schema.RunStatus, 1)
	updates <- i.status.Clone()
	i.subscribers[id] = updates

	var once sync.Once
	return updates, func() {
		once.Do(func() {
			i.mu.Lock()
			defer i.mu.Unlock()
			delete(i.subscribers, id)
			close(updates)
		})
	}
}

func (i *Injector) publishLocked() {
	snapshot := i.status
	for _, updates := range i.subscribers {
		select {
		case <-updates:
		default:
		}
		updates <- snapshot.Clone()
	}
}

// Wait blocks until the current run ends and returns its error.
func (i *Injector) Wait(ctx context.Context) error {
	select {
	case <-i.Done():
		return i.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsAborted reports whether err ended a run because it was stopped.
func IsAborted(err error) bool {
	return errors.Is(err, elevation.ErrAborted) || errors.Is(err, context.Canceled)
}
