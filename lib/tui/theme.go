// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// Theme defines the color palette for patchbay's terminal UI. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Stage status colors.
	StatusPending  lipgloss.Color
	StatusRunning  lipgloss.Color
	StatusFinished lipgloss.Color
	StatusError    lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	HelpText         lipgloss.Color

	// Progress bar gradient endpoints.
	ProgressStart string
	ProgressEnd   string

	// Animation accents: background tint for rows whose status just
	// changed. HotAccentPut marks progress, HotAccentRemove failure.
	HotAccentPut    lipgloss.Color
	HotAccentRemove lipgloss.Color
}

// StatusColor returns the color for a stage status.
func (theme Theme) StatusColor(status schema.StageStatus) lipgloss.Color {
	switch status {
	case schema.StatusRunning:
		return theme.StatusRunning
	case schema.StatusFinished:
		return theme.StatusFinished
	case schema.StatusError:
		return theme.StatusError
	default:
		return theme.StatusPending
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	StatusPending:  lipgloss.Color("240"), // dim gray
	StatusRunning:  lipgloss.Color("220"), // yellow/amber
	StatusFinished: lipgloss.Color("114"), // green
	StatusError:    lipgloss.Color("196"), // red

	HeaderForeground: lipgloss.Color("255"),
	HelpText:         lipgloss.Color("241"),

	ProgressStart: "#5A9BD5",
	ProgressEnd:   "#7BC96F",

	HotAccentPut:    lipgloss.Color("58"), // dark amber background tint
	HotAccentRemove: lipgloss.Color("52"), // dark red background tint
}
