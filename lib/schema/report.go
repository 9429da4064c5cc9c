// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"fmt"
	"net/url"
	"strings"
)

// maxReportOutput bounds the command output embedded in an issue body.
// Issue trackers reject very long prefill URLs.
const maxReportOutput = 4000

// ErrorReport carries everything an upstream maintainer needs to
// reproduce a failed run.
type ErrorReport struct {
	RunID         string    `json:"run_id"`
	TargetID      string    `json:"target_id"`
	TargetName    string    `json:"target_name"`
	TargetVersion string    `json:"target_version"`
	Stage         Stage     `json:"stage"`
	Kind          ErrorKind `json:"kind"`
	Message       string    `json:"message"`
	Output        string    `json:"output,omitempty"`
	ToolVersion   string    `json:"tool_version"`
	BuildVersion  string    `json:"build_version"`
}

// Title is a one-line summary suitable for an issue title.
func (r ErrorReport) Title() string {
	return fmt.Sprintf("[%s] %s %s failed at %s", r.Kind, r.TargetName, r.TargetVersion, r.Stage)
}

// Body renders the report as Markdown.
func (r ErrorReport) Body() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "**Target:** %s (`%s`) %s\n", r.TargetName, r.TargetID, r.TargetVersion)
	fmt.Fprintf(&builder, "**Stage:** %s\n", r.Stage)
	fmt.Fprintf(&builder, "**Kind:** %s\n", r.Kind)
	fmt.Fprintf(&builder, "**Tool version:** %s\n", r.ToolVersion)
	fmt.Fprintf(&builder, "**Build:** %s\n", r.BuildVersion)
	if r.RunID != "" {
		fmt.Fprintf(&builder, "**Run:** %s\n", r.RunID)
	}
	fmt.Fprintf(&builder, "\n%s\n", r.Message)
	if r.Output != "" {
		output := r.Output
		if len(output) > maxReportOutput {
			output = output[len(output)-maxReportOutput:]
		}
		fmt.Fprintf(&builder, "\n```\n%s\n```\n", strings.TrimRight(output, "\n"))
	}
	return builder.String()
}

// IssueURL returns base with title and body query parameters set, the
// form GitHub's "new issue" page accepts.
func (r ErrorReport) IssueURL(base string) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing issue URL %q: %w", base, err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return "", fmt.Errorf("issue URL %q must be http or https", base)
	}
	query := parsed.Query()
	query.Set("title", r.Title())
	query.Set("body", r.Body())
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
