// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import "time"

// ErrorKind classifies a run failure so a presentation layer can
// explain the cause and decide whether to re-prompt.
type ErrorKind string

const (
	// ErrorKindInstallation: the privileged helper could not be
	// installed (authorization denied or installer failure).
	ErrorKindInstallation ErrorKind = "installation"

	// ErrorKindConnection: the helper was unreachable or refused the
	// connection during identity verification.
	ErrorKindConnection ErrorKind = "connection"

	// ErrorKindCommand: a command exited non-zero.
	ErrorKindCommand ErrorKind = "command"

	// ErrorKindPrecondition: a required local input was missing
	// before any command was issued.
	ErrorKindPrecondition ErrorKind = "precondition"

	// ErrorKindCredential: the admin credential was rejected or the
	// consent prompt was cancelled. The operator should be asked
	// again.
	ErrorKindCredential ErrorKind = "credential"

	// ErrorKindAborted: the run was stopped.
	ErrorKindAborted ErrorKind = "aborted"

	// ErrorKindInternal covers anything unclassified.
	ErrorKindInternal ErrorKind = "internal"
)

// RunError is the failure attached to a stage record and to the run.
type RunError struct {
	Stage   Stage     `json:"stage"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	// Output is the combined output of the failing command, if any.
	Output string `json:"output,omitempty"`
}

// StageRecord tracks one stage within a run.
type StageRecord struct {
	Stage    Stage       `json:"stage"`
	Status   StageStatus `json:"status"`
	Message  string      `json:"message"`
	Progress float64     `json:"progress"`
	Error    *RunError   `json:"error,omitempty"`
}

// RunStatus is the observable aggregate for one target run.
type RunStatus struct {
	RunID         string `json:"run_id,omitempty"`
	TargetID      string `json:"target_id,omitempty"`
	TargetName    string `json:"target_name,omitempty"`
	TargetVersion string `json:"target_version,omitempty"`

	Running bool   `json:"running"`
	Message string `json:"message,omitempty"`

	// Records holds one entry per touched stage, in first-touch order.
	Records []StageRecord `json:"records,omitempty"`

	// Progress is the mean of Records[*].Progress.
	Progress float64 `json:"progress"`

	Error *RunError `json:"error,omitempty"`

	StartedAt time.Time `json:"started_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Record returns the record for stage if it was touched.
func (r RunStatus) Record(stage Stage) (StageRecord, bool) {
	for _, record := range r.Records {
		if record.Stage == stage {
			return record, true
		}
	}
	return StageRecord{}, false
}

// StageStatus returns the status of stage, which is pending until the
// stage is first touched.
func (r RunStatus) StageStatus(stage Stage) StageStatus {
	record, ok := r.Record(stage)
	if !ok {
		return StatusPending
	}
	return record.Status
}

// Apply folds record into the run: updated in place if the stage has
// a record, appended otherwise. Progress is recomputed over recorded
// stages only, and an error on the record becomes the run's error.
func (r *RunStatus) Apply(record StageRecord) {
	replaced := false
	for index := range r.Records {
		if r.Records[index].Stage == record.Stage {
			r.Records[index] = record
			replaced = true
			break
		}
	}
	if !replaced {
		r.Records = append(r.Records, record)
	}

	total := 0.0
	for _, existing := range r.Records {
		total += existing.Progress
	}
	r.Progress = total / float64(len(r.Records))

	if record.Message != "" {
		r.Message = record.Message
	}
	if record.Error != nil {
		runError := *record.Error
		r.Error = &runError
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r RunStatus) Clone() RunStatus {
	clone := r
	if r.Records != nil {
		clone.Records = make([]StageRecord, len(r.Records))
		for index, record := range r.Records {
			if record.Error != nil {
				runError := *record.Error
				record.Error = &runError
			}
			clone.Records[index] = record
		}
	}
	if r.Error != nil {
		runError := *r.Error
		clone.Error = &runError
	}
	return clone
}

// Finished reports whether the run reached the end marker.
func (r RunStatus) Finished() bool {
	return r.StageStatus(StageEnd) == StatusFinished
}
