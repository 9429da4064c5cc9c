// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"fmt"
	"strings"
)

// Transport identifies how a command reaches the shell that runs it.
type Transport int

const (
	// TransportNone leaves paths untouched. Used for display.
	TransportNone Transport = iota

	// TransportAppleScript embeds the command in an AppleScript string
	// literal ("do shell script"). A space becomes `\\ `, which the
	// AppleScript literal turns into `\ ` for the shell.
	TransportAppleScript

	// TransportBash hands the command to bash -c directly. A space
	// becomes `\ `.
	TransportBash
)

func (t Transport) String() string {
	switch t {
	case TransportNone:
		return "none"
	case TransportAppleScript:
		return "applescript"
	case TransportBash:
		return "bash"
	default:
		return fmt.Sprintf("transport(%d)", int(t))
	}
}

func (t Transport) spaceEscape() string {
	switch t {
	case TransportAppleScript:
		return `\\ `
	case TransportBash:
		return `\ `
	default:
		return " "
	}
}

// Escape rewrites the spaces in path for transport.
func Escape(path string, transport Transport) string {
	replacement := transport.spaceEscape()
	if replacement == " " {
		return path
	}
	return strings.ReplaceAll(path, " ", replacement)
}

// Unescape returns the neutral form of text previously produced by
// [Escape] with the same transport.
func Unescape(text string, transport Transport) string {
	sequence := transport.spaceEscape()
	if sequence == " " {
		return text
	}
	return strings.ReplaceAll(text, sequence, " ")
}
