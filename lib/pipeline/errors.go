// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/patchbay-dev/patchbay/lib/elevation"
	"github.com/patchbay-dev/patchbay/lib/helper"
	"github.com/patchbay-dev/patchbay/lib/schema"
)

// Start rejections.
var (
	ErrRunning        = errors.New("a run is already in progress")
	ErrUnknownTarget  = errors.New("target is not installed")
	ErrUnsupported    = errors.New("target has no profile")
	ErrCaveatDeclined = errors.New("profile caveat was not acknowledged")
)

// MissingToolsError rejects a start whose required tools are absent.
type MissingToolsError struct {
	Names []string
}

func (e *MissingToolsError) Error() string {
	return fmt.Sprintf("missing tools: %s", strings.Join(e.Names, ", "))
}

// classify maps an execution error onto the run error reported for
// stage.
func classify(stage schema.Stage, err error) *schema.RunError {
	runError := &schema.RunError{Stage: stage, Kind: schema.ErrorKindInternal, Message: err.Error()}

	var commandError *elevation.CommandError
	var credentialError *elevation.CredentialError
	var preconditionError *elevation.PreconditionError
	var installationError *helper.InstallationError
	var connectionError *helper.ConnectionError
	switch {
	case errors.As(err, &preconditionError):
		runError.Kind = schema.ErrorKindPrecondition
	case errors.As(err, &credentialError):
		runError.Kind = schema.ErrorKindCredential
	case errors.As(err, &installationError):
		runError.Kind = schema.ErrorKindInstallation
		runError.Output = installationError.Output
	case errors.As(err, &connectionError):
		runError.Kind = schema.ErrorKindConnection
	case errors.As(err, &commandError):
		runError.Kind = schema.ErrorKindCommand
		runError.Output = commandError.Output
	case errors.Is(err, elevation.ErrAborted), errors.Is(err, elevation.ErrClosed), errors.Is(err, context.Canceled):
		runError.Kind = schema.ErrorKindAborted
	}
	return runError
}
