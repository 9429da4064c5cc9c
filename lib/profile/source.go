// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package profile

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// reloadDelay coalesces the burst of events an editor produces when it
// saves a file.
const reloadDelay = 100 * time.Millisecond

// Source holds the current catalog loaded from a file.
type Source struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	catalog *Catalog
}

// Open loads the catalog at path.
func Open(path string, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	catalog, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Source{path: path, logger: logger, catalog: catalog}, nil
}

// Path returns the catalog file location.
func (s *Source) Path() string { return s.path }

// Catalog returns the current catalog.
func (s *Source) Catalog() *Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog
}

// Profile returns the profile for identifier from the current catalog.
func (s *Source) Profile(identifier string) (schema.TargetProfile, bool) {
	return s.Catalog().Profile(identifier)
}

// Resolve matches target against the current catalog.
func (s *Source) Resolve(target schema.Target) (schema.TargetProfile, bool) {
	return s.Catalog().Resolve(target)
}

// Reload rereads the file. On error the current catalog is kept.
func (s *Source) Reload() error {
	catalog, err := ReadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	return nil
}

// Watch reloads the catalog whenever the file is written, created, or
// replaced, until ctx is cancelled. onReload, when non-nil, is called
// with each successfully loaded catalog.
//
// The parent directory is watched rather than the file, so saves that
// replace the file by rename are seen.
func (s *Source) Watch(ctx context.Context, onReload func(*Catalog)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating file watcher: %w", err)
	}
	defer watcher.Close()

	directory := filepath.Dir(s.path)
	if err := watcher.Add(directory); err != nil {
		return fmt.Errorf("watching %s: %w", directory, err)
	}
	name := filepath.Clean(s.path)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("profile watcher error", "error", err)

		case <-timer.C:
			if err := s.Reload(); err != nil {
				s.logger.Warn("keeping previous profile catalog", "path", s.path, "error", err)
				continue
			}
			catalog := s.Catalog()
			s.logger.Info("reloaded profile catalog", "path", s.path, "profiles", len(catalog.profiles))
			if onReload != nil {
				onReload(catalog)
			}
		}
	}
}
