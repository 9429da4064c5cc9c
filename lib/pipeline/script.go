// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/patchbay-dev/patchbay/lib/command"
)

// prepareScript copies the named extra script out of tool storage into
// a fresh private directory under scratch, rewriting bare tool names to
// their local paths. The returned function removes the directory.
func prepareScript(tools command.Locator, names command.ToolNames, script, scratch string) (string, func(), error) {
	source, ok := tools.Path(script)
	if !ok {
		return "", nil, fmt.Errorf("extra script %s is not in tool storage", script)
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return "", nil, fmt.Errorf("reading extra script: %w", err)
	}

	var pairs []string
	for _, name := range []string{names.Rewriter, names.Optool, names.Library, names.Keygen} {
		if name == "" {
			continue
		}
		if path, ok := tools.Path(name); ok {
			pairs = append(pairs, name, command.Escape(path, command.TransportBash))
		}
	}
	rewritten := content
	if len(pairs) > 0 {
		rewritten = []byte(rewriteToolNames(string(content), pairs))
	}

	if scratch == "" {
		scratch = os.TempDir()
	}
	directory, err := os.MkdirTemp(scratch, "patchbay-script-")
	if err != nil {
		return "", nil, fmt.Errorf("creating script directory: %w", err)
	}
	remove := func() { os.RemoveAll(directory) }
	if err := os.Chmod(directory, 0o700); err != nil {
		remove()
		return "", nil, fmt.Errorf("restricting script directory: %w", err)
	}
	path := filepath.Join(directory, filepath.Base(script))
	if err := os.WriteFile(path, rewritten, 0o700); err != nil {
		remove()
		return "", nil, fmt.Errorf("writing extra script: %w", err)
	}
	return path, remove, nil
}

// rewriteToolNames replaces whole-word occurrences of each tool name.
// A name already inside a path (preceded by "/") is left alone.
func rewriteToolNames(text string, pairs []string) string {
	lines := strings.SplitAfter(text, "\n")
	for index, line := range lines {
		for pair := 0; pair < len(pairs); pair += 2 {
			line = replaceWord(line, pairs[pair], pairs[pair+1])
		}
		lines[index] = line
	}
	return strings.Join(lines, "")
}

func replaceWord(line, word, replacement string) string {
	var builder strings.Builder
	for {
		index := strings.Index(line, word)
		if index < 0 {
			builder.WriteString(line)
			return builder.String()
		}
		end := index + len(word)
		if boundaryBefore(line, index) && boundaryAfter(line, end) {
			builder.WriteString(line[:index])
			builder.WriteString(replacement)
		} else {
			builder.WriteString(line[:end])
		}
		line = line[end:]
	}
}

func boundaryBefore(line string, index int) bool {
	if index == 0 {
		return true
	}
	return !isWordByte(line[index-1]) && line[index-1] != '/'
}

func boundaryAfter(line string, end int) bool {
	if end == len(line) {
		return true
	}
	return !isWordByte(line[end])
}

func isWordByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		('0' <= c && c <= '9') || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
