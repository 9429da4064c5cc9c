// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
)

type codedError int

func (e codedError) Error() string { return fmt.Sprintf("exit %d", int(e)) }
func (e codedError) ExitCode() int { return int(e) }

func TestReport(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantText string
	}{
		{"plain", errors.New("boom"), 1, "error: boom\n"},
		{"coded", codedError(3), 3, ""},
		{"wrapped coded", fmt.Errorf("run: %w", codedError(2)), 2, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			var buffer bytes.Buffer
			if code := report(&buffer, test.err); code != test.wantCode {
				t.Errorf("code = %d, want %d", code, test.wantCode)
			}
			if buffer.String() != test.wantText {
				t.Errorf("output = %q, want %q", buffer.String(), test.wantText)
			}
		})
	}
}
