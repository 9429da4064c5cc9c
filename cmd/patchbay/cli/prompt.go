// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrNotInteractive is returned by prompts when stdin is not a
// terminal.
var ErrNotInteractive = errors.New("stdin is not a terminal")

// ReadPassword prompts on stderr and reads a line from the terminal
// without echo. The caller owns the returned slice and should wipe it.
func ReadPassword(prompt string) ([]byte, error) {
	if !IsTerminal(os.Stdin) {
		return nil, ErrNotInteractive
	}
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}

// Confirm writes question to w and reads a yes/no answer from r. Only
// "y" and "yes" (any case) count as yes.
func Confirm(r io.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N] ", question)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}
