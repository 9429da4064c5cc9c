// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"strings"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// Command is one shell command produced for a stage.
type Command struct {
	// Text is the shell text, already escaped for the transport that
	// will carry it.
	Text string

	// Elevated marks commands that must run as root.
	Elevated bool

	// Precondition is set only on commands built by [Fail] and holds
	// the diagnostic they report.
	Precondition string
}

// Shell returns an unprivileged command.
func Shell(text string) Command { return Command{Text: text} }

// Elevated returns a command that must run as root.
func Elevated(text string) Command { return Command{Text: text, Elevated: true} }

// Fail returns an unprivileged command that prints message to stderr
// and exits 1.
func Fail(message string) Command {
	return Command{
		Text:         "echo " + quote(message) + " >&2; exit 1",
		Precondition: message,
	}
}

// IsPrecondition reports whether c was built by [Fail].
func (c Command) IsPrecondition() bool { return c.Precondition != "" }

func (c Command) String() string {
	if c.Elevated {
		return "# " + c.Text
	}
	return "$ " + c.Text
}

// Plan is the output of formatting one stage.
type Plan struct {
	Stage    schema.Stage
	Commands []Command

	// Diagnostics are non-fatal notes, such as why a stage is a no-op.
	Diagnostics []string
}

// Failed reports whether the plan is a single precondition failure.
func (p Plan) Failed() bool {
	return len(p.Commands) == 1 && p.Commands[0].IsPrecondition()
}

// quote wraps s in single quotes for POSIX shells.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
