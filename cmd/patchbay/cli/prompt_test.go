// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}
	for _, test := range tests {
		var output bytes.Buffer
		if got := Confirm(strings.NewReader(test.input), &output, "Continue?"); got != test.want {
			t.Errorf("Confirm(%q) = %v, want %v", test.input, got, test.want)
		}
		if !strings.Contains(output.String(), "Continue? [y/N]") {
			t.Errorf("prompt = %q", output.String())
		}
	}
}
