// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TargetProfile is the declarative description of how to modify one
// target. Profiles are immutable for the lifetime of a run: the
// pipeline borrows a copy at start and never writes to it.
type TargetProfile struct {
	// Identifier is the bundle identifier this profile applies to.
	Identifier string `json:"identifier"`

	// BundleLocation is the expected bundle path (for example
	// "/Applications/Foo.app"). Used to match a target whose
	// identifier changed between releases.
	BundleLocation string `json:"bundle_location,omitempty"`

	// ExecutablePath is the executable to patch, relative to the
	// bundle root (for example "Contents/Frameworks/Foo.framework/Foo").
	// Empty means Contents/MacOS/<CFBundleExecutable>.
	ExecutablePath string `json:"executable_path,omitempty"`

	// BridgePath is the directory, relative to the bundle root, that
	// receives the shared library link in copy mode. Empty means
	// Contents/Frameworks.
	BridgePath string `json:"bridge_path,omitempty"`

	// Components are nested bundles (relative to the bundle root)
	// whose executables are patched alongside the main one.
	Components []string `json:"components,omitempty"`

	NeedsCopyToAppDir bool `json:"needs_copy_to_app_dir,omitempty"`
	NoSignTarget      bool `json:"no_sign_target,omitempty"`
	DeepSignApp       bool `json:"deep_sign_app,omitempty"`
	NoDeep            bool `json:"no_deep,omitempty"`
	AutoHandleSetapp  bool `json:"auto_handle_setapp,omitempty"`
	KeygenRequired    bool `json:"keygen_required,omitempty"`

	// UseOptool selects optool instead of insert_dylib as the
	// load-command rewriter.
	UseOptool bool `json:"use_optool,omitempty"`

	// ScriptOnly skips library insertion and re-signing; only the
	// extra script does work.
	ScriptOnly bool `json:"script_only,omitempty"`

	// Entitlements names an entitlements file in tool storage.
	Entitlements string `json:"entitlements,omitempty"`

	// ExtraScript names a post-install shell script in tool storage.
	ExtraScript string `json:"extra_script,omitempty"`

	// HelperDaemons are privileged helper binaries shipped inside the
	// bundle, relative to the bundle root.
	HelperDaemons MultiString `json:"helper_daemons,omitzero"`

	// PrivacyServices are the TCC services whose grants are reset.
	PrivacyServices PrivacyServices `json:"privacy_services,omitzero"`

	// Caveat, when non-empty, must be acknowledged by the operator
	// before a run starts.
	Caveat string `json:"caveat,omitempty"`
}

// MultiString is a value that decodes from either a JSON string or a
// JSON array of strings. The zero value holds nothing.
type MultiString struct {
	values []string
	many   bool
}

// Single returns a MultiString holding one value.
func Single(value string) MultiString {
	if value == "" {
		return MultiString{}
	}
	return MultiString{values: []string{value}}
}

// Many returns a MultiString holding a list.
func Many(values ...string) MultiString {
	return MultiString{values: append([]string(nil), values...), many: true}
}

// Values returns every held value in declaration order. Empty strings
// are skipped.
func (m MultiString) Values() []string {
	var result []string
	for _, value := range m.values {
		if value != "" {
			result = append(result, value)
		}
	}
	return result
}

// IsMany reports whether the value was decoded from a list.
func (m MultiString) IsMany() bool { return m.many }

// IsZero reports whether no values are held. Used by omitzero.
func (m MultiString) IsZero() bool { return len(m.Values()) == 0 }

// UnmarshalJSON accepts null, a string, or an array of strings.
func (m *MultiString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = MultiString{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*m = Single(value)
		return nil
	case len(data) > 0 && data[0] == '[':
		var values []string
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("list must contain only strings: %w", err)
		}
		*m = Many(values...)
		return nil
	default:
		return fmt.Errorf("expected string or list of strings, got %s", truncateJSON(data))
	}
}

// MarshalJSON writes a string for single values and an array otherwise.
func (m MultiString) MarshalJSON() ([]byte, error) {
	if !m.many && len(m.values) == 1 {
		return json.Marshal(m.values[0])
	}
	return json.Marshal(m.Values())
}

// PrivacyAll is the tccutil service name that resets every service.
const PrivacyAll = "All"

// PrivacyServices decodes from a JSON boolean (true resets every
// service) or a list of TCC service names.
type PrivacyServices struct {
	all      bool
	services []string
}

// PrivacyEverything returns a value that resets every service.
func PrivacyEverything() PrivacyServices { return PrivacyServices{all: true} }

// PrivacyList returns a value that resets the named services.
func PrivacyList(services ...string) PrivacyServices {
	return PrivacyServices{services: append([]string(nil), services...)}
}

// Values returns the service names to pass to tccutil.
func (p PrivacyServices) Values() []string {
	if p.all {
		return []string{PrivacyAll}
	}
	var result []string
	for _, service := range p.services {
		if service != "" {
			result = append(result, service)
		}
	}
	return result
}

// IsZero reports whether nothing is reset.
func (p PrivacyServices) IsZero() bool { return len(p.Values()) == 0 }

// UnmarshalJSON accepts null, a boolean, or an array of strings.
func (p *PrivacyServices) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("false")):
		*p = PrivacyServices{}
		return nil
	case bytes.Equal(data, []byte("true")):
		*p = PrivacyEverything()
		return nil
	case len(data) > 0 && data[0] == '[':
		var services []string
		if err := json.Unmarshal(data, &services); err != nil {
			return fmt.Errorf("privacy services must be strings: %w", err)
		}
		*p = PrivacyList(services...)
		return nil
	default:
		return fmt.Errorf("expected boolean or list of strings, got %s", truncateJSON(data))
	}
}

// MarshalJSON writes true for the reset-everything form.
func (p PrivacyServices) MarshalJSON() ([]byte, error) {
	if p.all {
		return []byte("true"), nil
	}
	return json.Marshal(p.Values())
}

func truncateJSON(data []byte) string {
	text := string(data)
	if len(text) > 40 {
		text = text[:40] + "..."
	}
	return strings.TrimSpace(text)
}

// Target is an installed application as reported by discovery.
type Target struct {
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
	Version    string `json:"version"`
	Build      string `json:"build,omitempty"`

	// ExecutableName is CFBundleExecutable.
	ExecutableName string `json:"executable_name"`

	// BundlePath is the absolute path of the .app directory.
	BundlePath string `json:"bundle_path"`

	IconPath string `json:"icon_path,omitempty"`
}

// InSetapp reports whether the bundle lives under a Setapp folder.
func (t Target) InSetapp() bool {
	return strings.Contains(t.BundlePath, "/Setapp/")
}
