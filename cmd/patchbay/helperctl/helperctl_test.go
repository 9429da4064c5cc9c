// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helperctl

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/patchbay-dev/patchbay/lib/ipc"
)

func TestStatusReportFill(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		shipped   string
		installed string
		wantStale bool
	}{
		{"matching", "abc", "abc", false},
		{"different", "abc", "def", true},
		{"unknown shipped", "", "def", false},
		{"unknown installed", "abc", "", false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			report := statusReport{Installed: true, ShippedHash: test.shipped}
			report.fill(ipc.Status{Version: "1.0", PID: 42, BinaryHash: test.installed, Executed: 3})
			if !report.Running {
				t.Error("Running = false after fill")
			}
			if report.Stale != test.wantStale {
				t.Errorf("Stale = %v, want %v", report.Stale, test.wantStale)
			}
		})
	}
}

func TestWriteStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		report statusReport
		want   string
	}{
		{"not installed", statusReport{}, "not installed"},
		{"unreachable", statusReport{Installed: true, Error: "dial failed"}, "not reachable: dial failed"},
		{"running", statusReport{Installed: true, Running: true, Version: "1.2", PID: 7, StartedAt: time.Unix(0, 0)}, "PID:       7"},
		{"stale", statusReport{Installed: true, Running: true, Stale: true}, "install --force"},
	}
	for _, test := range tests {
		var buffer bytes.Buffer
		writeStatus(&buffer, test.report)
		if !strings.Contains(buffer.String(), test.want) {
			t.Errorf("%s: output %q missing %q", test.name, buffer.String(), test.want)
		}
	}
}
