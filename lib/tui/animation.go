// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// HeatDecayDuration is how long a stage row glows after its status
// changes. Heat starts at 1.0 and decays linearly to 0.0 over this
// duration.
const HeatDecayDuration = 1500 * time.Millisecond

// HeatTickInterval is the re-render interval while any items are hot.
const HeatTickInterval = 100 * time.Millisecond

// HeatKind distinguishes different types of changes for color selection.
type HeatKind int

const (
	// HeatPut indicates a stage advanced (amber glow).
	HeatPut HeatKind = iota
	// HeatRemove indicates a stage failed (red glow).
	HeatRemove
)

// heatEntry records when and how a stage last changed.
type heatEntry struct {
	ignition time.Time
	kind     HeatKind
}

// HeatTracker maps stages to ignition timestamps for animated change
// highlighting. Each change "ignites" a stage, which then decays from
// full intensity to zero over [HeatDecayDuration].
type HeatTracker struct {
	entries map[schema.Stage]heatEntry
}

// NewHeatTracker creates an empty heat tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{
		entries: make(map[schema.Stage]heatEntry),
	}
}

// Ignite records a change for stage. Resets the decay timer if the
// stage was already hot.
func (tracker *HeatTracker) Ignite(stage schema.Stage, kind HeatKind, now time.Time) {
	tracker.entries[stage] = heatEntry{ignition: now, kind: kind}
}

// Heat returns the current intensity for stage: 1.0 at ignition,
// linearly decaying to 0.0 over [HeatDecayDuration]. Returns 0.0 for
// stages that were never ignited or have fully decayed.
func (tracker *HeatTracker) Heat(stage schema.Stage, now time.Time) float64 {
	entry, exists := tracker.entries[stage]
	if !exists {
		return 0.0
	}
	elapsed := now.Sub(entry.ignition)
	if elapsed >= HeatDecayDuration {
		return 0.0
	}
	return 1.0 - float64(elapsed)/float64(HeatDecayDuration)
}

// Kind returns the heat kind for stage. Only meaningful when Heat()
// returns > 0.
func (tracker *HeatTracker) Kind(stage schema.Stage) HeatKind {
	entry, exists := tracker.entries[stage]
	if !exists {
		return HeatPut
	}
	return entry.kind
}

// HasHot returns true if any stage still has heat > 0, meaning the
// tick timer should keep running for animation.
func (tracker *HeatTracker) HasHot(now time.Time) bool {
	for stage, entry := range tracker.entries {
		if now.Sub(entry.ignition) < HeatDecayDuration {
			return true
		}
		// Garbage-collect fully decayed entries.
		delete(tracker.entries, stage)
	}
	return false
}
