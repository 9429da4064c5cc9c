// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "fmt"

// Stage is one named step of an injection run. The numeric order is
// the execution order.
type Stage int

const (
	// StageStart is synthetic: marked finished as soon as a run is
	// accepted.
	StageStart Stage = iota
	StageBackup
	StagePermissionReset
	StageKeygen
	StageLibraryInsertion
	StageReSigning
	StageExtraScript
	StageHelperDaemon
	StagePrivacyReset
	// StageEnd is synthetic: marked finished after the last real
	// stage succeeds.
	StageEnd
)

var stageNames = [...]string{
	StageStart:            "start",
	StageBackup:           "backup",
	StagePermissionReset:  "permission-reset",
	StageKeygen:           "keygen",
	StageLibraryInsertion: "library-insertion",
	StageReSigning:        "re-signing",
	StageExtraScript:      "extra-script",
	StageHelperDaemon:     "helper-daemon",
	StagePrivacyReset:     "privacy-reset",
	StageEnd:              "end",
}

var stageDescriptions = [...]string{
	StageStart:            "Starting",
	StageBackup:           "Backing up executable",
	StagePermissionReset:  "Resetting permissions and stopping the app",
	StageKeygen:           "Running key generator",
	StageLibraryInsertion: "Inserting library",
	StageReSigning:        "Re-signing",
	StageExtraScript:      "Running extra script",
	StageHelperDaemon:     "Patching helper daemons",
	StagePrivacyReset:     "Resetting privacy permissions",
	StageEnd:              "Done",
}

// InjectionStages returns the real stages in execution order,
// excluding the synthetic start and end markers.
func InjectionStages() []Stage {
	return []Stage{
		StageBackup,
		StagePermissionReset,
		StageKeygen,
		StageLibraryInsertion,
		StageReSigning,
		StageExtraScript,
		StageHelperDaemon,
		StagePrivacyReset,
	}
}

func (s Stage) valid() bool { return s >= StageStart && s <= StageEnd }

// String returns the stable wire name ("re-signing").
func (s Stage) String() string {
	if !s.valid() {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Description returns a human-readable label for progress displays.
func (s Stage) Description() string {
	if !s.valid() {
		return s.String()
	}
	return stageDescriptions[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s Stage) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("invalid stage %d", int(s))
	}
	return []byte(stageNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage converts a wire name back to a Stage.
func ParseStage(name string) (Stage, error) {
	for index, candidate := range stageNames {
		if candidate == name {
			return Stage(index), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// StageStatus is the lifecycle state of one stage record.
type StageStatus int

const (
	StatusPending StageStatus = iota
	StatusRunning
	StatusFinished
	StatusError
)

func (s StageStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s StageStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *StageStatus) UnmarshalText(text []byte) error {
	for _, candidate := range []StageStatus{StatusPending, StatusRunning, StatusFinished, StatusError} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown stage status %q", text)
}
