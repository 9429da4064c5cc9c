// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package elevation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/credential"
	"github.com/patchbay-dev/patchbay/lib/shell"
)

// Result is the outcome of one executed command.
type Result struct {
	Command  command.Command
	Output   string
	ExitCode int

	// Path is "local" for unprivileged commands, otherwise the name of
	// the elevator that ran the command.
	Path string
}

// Config holds the executor's collaborators.
type Config struct {
	// Runner starts local processes. Defaults to shell.Exec.
	Runner shell.Runner

	// Credentials is the process-wide credential cache. May be nil,
	// in which case the sudo path is never taken.
	Credentials *credential.Cache

	// Channel is the privileged helper. May be nil.
	Channel Channel

	Logger *slog.Logger
}

// Executor runs commands strictly one at a time in submission order.
type Executor struct {
	runner      shell.Runner
	credentials *credential.Cache
	sudo        *sudoElevator
	consent     *consentElevator
	channel     *channelElevator
	logger      *slog.Logger

	mu     sync.Mutex
	queue  []*job
	closed bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}

	aborted atomic.Bool
}

type job struct {
	ctx     context.Context
	command command.Command
	run     func(ctx context.Context) (Result, error)
	future  *Future
}

// Future is the pending result of a submitted command.
type Future struct {
	done   chan struct{}
	result Result
	err    error
}

// Wait blocks until the command has run or ctx is done. Returning on
// ctx does not stop the command.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

func (f *Future) resolve(result Result, err error) {
	f.result, f.err = result, err
	close(f.done)
}

// New starts an executor. Call Close to stop its worker.
func New(config Config) *Executor {
	runner := config.Runner
	if runner == nil {
		runner = shell.Exec{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	executor := &Executor{
		runner:      runner,
		credentials: config.Credentials,
		consent:     &consentElevator{runner: runner},
		logger:      logger,
		wake:        make(chan struct{}, 1),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	if config.Credentials != nil {
		executor.sudo = &sudoElevator{runner: runner, credentials: config.Credentials}
	}
	if config.Channel != nil {
		executor.channel = &channelElevator{channel: config.Channel}
	}
	go executor.work()
	return executor
}

// elevator picks the path for the next elevated command: cached
// credential, then helper channel, then consent prompt.
func (e *Executor) elevator() Elevator {
	if e.sudo != nil && e.credentials.Has() {
		return e.sudo
	}
	if e.channel != nil {
		return e.channel
	}
	return e.consent
}

// Transport reports the escaping the next elevated command needs.
func (e *Executor) Transport() command.Transport {
	return e.elevator().Transport()
}

// Submit enqueues cmd and returns its future. Execution uses a context
// detached from ctx's cancellation, but a ctx cancelled before the
// item is dequeued skips it.
func (e *Executor) Submit(ctx context.Context, cmd command.Command) *Future {
	return e.enqueue(ctx, cmd, func(runContext context.Context) (Result, error) {
		return e.execute(runContext, cmd)
	})
}

func (e *Executor) enqueue(ctx context.Context, cmd command.Command, run func(context.Context) (Result, error)) *Future {
	future := &Future{done: make(chan struct{})}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		future.resolve(Result{Command: cmd}, ErrClosed)
		return future
	}
	e.queue = append(e.queue, &job{ctx: ctx, command: cmd, run: run, future: future})
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return future
}

// SubmitSequence runs commands in order, submitting each only after
// the previous one finished, and stops at the first failure. The
// results of the commands that ran are returned alongside the error.
func (e *Executor) SubmitSequence(ctx context.Context, commands []command.Command) ([]Result, error) {
	results := make([]Result, 0, len(commands))
	for index, cmd := range commands {
		if e.aborted.Load() {
			return results, ErrAborted
		}
		result, err := e.Submit(ctx, cmd).Wait(ctx)
		if err != nil {
			e.logger.Debug("sequence stopped",
				"index", index,
				"remaining", len(commands)-index-1,
				"error", err,
			)
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// VerifyCredential checks the cached password with sudo -v through the
// queue. A rejected password is cleared from the cache and reported as
// a CredentialError.
func (e *Executor) VerifyCredential(ctx context.Context) error {
	if e.sudo == nil || !e.credentials.Has() {
		return &CredentialError{Reason: credential.ErrNoCredential.Error()}
	}
	_, err := e.enqueue(ctx, command.Command{Text: "sudo -v", Elevated: true}, func(runContext context.Context) (Result, error) {
		result, err := e.sudo.verify(runContext)
		return Result{Output: result.Output, ExitCode: result.ExitCode, Path: e.sudo.Name()}, err
	}).Wait(ctx)
	if err != nil {
		var credentialError *CredentialError
		if errors.As(err, &credentialError) {
			e.credentials.Clear()
		}
		return err
	}
	return nil
}

// Abort stops the queue: items not yet started resolve with
// ErrAborted. The running command, if any, finishes.
func (e *Executor) Abort() {
	e.aborted.Store(true)
}

// Reset clears a previous Abort so a new run can execute.
func (e *Executor) Reset() {
	e.aborted.Store(false)
}

// Close aborts pending items and stops the worker after the running
// command finishes.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		<-e.stopped
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.aborted.Store(true)
	close(e.stop)
	<-e.stopped
}

func (e *Executor) next() *job {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return nil
	}
	item := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return item
}

func (e *Executor) work() {
	defer close(e.stopped)
	for {
		item := e.next()
		if item == nil {
			select {
			case <-e.wake:
				continue
			case <-e.stop:
				e.drain()
				return
			}
		}

		if e.aborted.Load() {
			item.future.resolve(Result{Command: item.command}, ErrAborted)
			continue
		}
		if err := item.ctx.Err(); err != nil {
			item.future.resolve(Result{Command: item.command}, fmt.Errorf("%w: %w", ErrAborted, err))
			continue
		}

		result, err := item.run(context.WithoutCancel(item.ctx))
		item.future.resolve(result, err)
	}
}

func (e *Executor) drain() {
	for item := e.next(); item != nil; item = e.next() {
		item.future.resolve(Result{Command: item.command}, ErrClosed)
	}
}

// execute runs one command and maps its outcome onto the error kinds.
func (e *Executor) execute(ctx context.Context, cmd command.Command) (Result, error) {
	path := "local"
	var outcome shell.Result
	var err error
	if cmd.Elevated {
		elevator := e.elevator()
		path = elevator.Name()
		e.logger.Info("running elevated command", "path", path, "command", cmd.Text)
		outcome, err = elevator.Run(ctx, cmd.Text)
	} else {
		e.logger.Info("running command", "command", cmd.Text)
		outcome, err = e.runner.Run(ctx, shell.Bash(cmd.Text))
	}

	result := Result{Command: cmd, Output: outcome.Output, ExitCode: outcome.ExitCode, Path: path}
	if err != nil {
		e.logger.Warn("command could not run", "path", path, "error", err)
		return result, err
	}
	if outcome.ExitCode == 0 {
		return result, nil
	}

	if cmd.IsPrecondition() {
		return result, &PreconditionError{Message: cmd.Precondition}
	}
	commandError := &CommandError{
		Command:  cmd.Text,
		ExitCode: outcome.ExitCode,
		Output:   outcome.Output,
		Path:     path,
	}
	if strings.Contains(outcome.Output, "Operation not permitted") {
		commandError.Hint = privacyHint
	}
	e.logger.Warn("command failed",
		"path", path,
		"exit_code", outcome.ExitCode,
		"output", lastLine(outcome.Output),
	)
	return result, commandError
}
