// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/patchbay-dev/patchbay/lib/toolstore"
)

// EnvironmentVariable names the config file when --config is absent.
const EnvironmentVariable = "PATCHBAY_CONFIG"

// Config is the master configuration for patchbay.
type Config struct {
	// Tools configures tool storage.
	Tools ToolsConfig `yaml:"tools"`

	// Profiles configures the target profile file.
	Profiles ProfilesConfig `yaml:"profiles"`

	// Discovery configures the application scan.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Helper configures the privileged helper channel.
	Helper HelperConfig `yaml:"helper"`

	// Reports configures failure reports.
	Reports ReportsConfig `yaml:"reports"`
}

// ToolsConfig configures tool storage and the names of the tools in
// it.
type ToolsConfig struct {
	// Dir is the tool storage directory.
	Dir string `yaml:"dir"`

	// Rewriter is the default load-command rewriter.
	Rewriter string `yaml:"rewriter"`

	// Optool is the alternate rewriter for profiles that ask for it.
	Optool string `yaml:"optool"`

	// Library is the shared library inserted into targets.
	Library string `yaml:"library"`

	// Keygen is the key generator helper.
	Keygen string `yaml:"keygen"`

	// ScratchDir holds prepared extra scripts. Empty means the system
	// temporary directory.
	ScratchDir string `yaml:"scratch_dir"`
}

// ProfilesConfig configures the target profile file.
type ProfilesConfig struct {
	// Path is the JSON (with comments) profile file.
	// Default: ${PATCHBAY_TOOLS}/config.json
	Path string `yaml:"path"`

	// Watch reloads the file when it changes.
	Watch bool `yaml:"watch"`
}

// DiscoveryConfig configures the application scan.
type DiscoveryConfig struct {
	// Roots are the directories scanned for .app bundles.
	Roots []string `yaml:"roots"`

	// Concurrency bounds the number of bundles read at once.
	// Default: 8
	Concurrency int `yaml:"concurrency"`
}

// HelperConfig configures the privileged helper channel.
type HelperConfig struct {
	// Enabled routes elevated commands through the helper daemon when
	// no cached credential is available.
	Enabled bool `yaml:"enabled"`

	// SocketPath is the daemon's Unix socket.
	SocketPath string `yaml:"socket_path"`

	// Binary is the helper binary installed on first use. Empty means
	// patchbay-helper next to the running executable.
	Binary string `yaml:"binary"`

	// InstallWait bounds how long to wait for the socket after
	// installation.
	// Default: 10s
	InstallWait string `yaml:"install_wait"`
}

// ReportsConfig configures failure reports.
type ReportsConfig struct {
	// IssueURL is the "new issue" page that receives prefilled
	// reports.
	IssueURL string `yaml:"issue_url"`
}

// Default returns the built-in configuration.
func Default() *Config {
	toolsDir, err := toolstore.DefaultDir()
	if err != nil {
		toolsDir = filepath.Join(os.Getenv("HOME"), ".config", "patchbay", "tools")
	}

	return &Config{
		Tools: ToolsConfig{
			Dir:      toolsDir,
			Rewriter: "insert_dylib",
			Optool:   "optool",
			Library:  "91QiuChenly.dylib",
			Keygen:   "KeygenStarter",
		},
		Profiles: ProfilesConfig{
			Path: "${PATCHBAY_TOOLS}/config.json",
		},
		Discovery: DiscoveryConfig{
			Roots:       []string{"/Applications", "/Applications/Setapp"},
			Concurrency: 8,
		},
		Helper: HelperConfig{
			Enabled:     true,
			SocketPath:  "/var/run/dev.patchbay.helper.sock",
			InstallWait: "10s",
		},
		Reports: ReportsConfig{
			IssueURL: "https://github.com/patchbay-dev/patchbay/issues/new",
		},
	}
}

// Load loads configuration from the file named by PATCHBAY_CONFIG, or
// returns the expanded defaults when it is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		cfg := Default()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path over the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Unknown keys are errors so a misspelled field is not silently
	// ignored. An empty file decodes to io.EOF and leaves the defaults.
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Tools.Dir = expandVars(c.Tools.Dir, vars)
	vars["PATCHBAY_TOOLS"] = c.Tools.Dir // Update for dependent paths.

	c.Tools.ScratchDir = expandVars(c.Tools.ScratchDir, vars)
	c.Profiles.Path = expandVars(c.Profiles.Path, vars)
	for index, root := range c.Discovery.Roots {
		c.Discovery.Roots[index] = expandVars(root, vars)
	}
	c.Helper.SocketPath = expandVars(c.Helper.SocketPath, vars)
	c.Helper.Binary = expandVars(c.Helper.Binary, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Tools.Dir == "" {
		errs = append(errs, fmt.Errorf("tools.dir is required"))
	}
	for _, tool := range []struct{ field, name string }{
		{"tools.rewriter", c.Tools.Rewriter},
		{"tools.optool", c.Tools.Optool},
		{"tools.library", c.Tools.Library},
		{"tools.keygen", c.Tools.Keygen},
	} {
		field, name := tool.field, tool.name
		if name == "" {
			errs = append(errs, fmt.Errorf("%s is required", field))
		} else if filepath.Base(name) != name {
			errs = append(errs, fmt.Errorf("%s must be a file name, got %q", field, name))
		}
	}

	if c.Profiles.Path == "" {
		errs = append(errs, fmt.Errorf("profiles.path is required"))
	}

	if len(c.Discovery.Roots) == 0 {
		errs = append(errs, fmt.Errorf("discovery.roots must name at least one directory"))
	}
	if c.Discovery.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("discovery.concurrency must be positive, got %d", c.Discovery.Concurrency))
	}

	if c.Helper.Enabled && c.Helper.SocketPath == "" {
		errs = append(errs, fmt.Errorf("helper.socket_path is required when the helper is enabled"))
	}
	if _, err := c.InstallWait(); err != nil {
		errs = append(errs, err)
	}

	if c.Reports.IssueURL != "" {
		parsed, err := url.Parse(c.Reports.IssueURL)
		if err != nil || !slices.Contains([]string{"http", "https"}, parsed.Scheme) {
			errs = append(errs, fmt.Errorf("reports.issue_url must be an http(s) URL, got %q", c.Reports.IssueURL))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// InstallWait parses Helper.InstallWait.
func (c *Config) InstallWait() (time.Duration, error) {
	wait, err := time.ParseDuration(c.Helper.InstallWait)
	if err != nil {
		return 0, fmt.Errorf("helper.install_wait: %w", err)
	}
	if wait <= 0 {
		return 0, fmt.Errorf("helper.install_wait must be positive, got %s", c.Helper.InstallWait)
	}
	return wait, nil
}

// HelperBinary returns the helper binary to install: Helper.Binary if
// set, otherwise patchbay-helper beside executable.
func (c *Config) HelperBinary(executable string) string {
	if c.Helper.Binary != "" {
		return c.Helper.Binary
	}
	return filepath.Join(filepath.Dir(executable), "patchbay-helper")
}

// EnsurePaths creates the tool and scratch directories if they don't
// exist.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Tools.Dir, c.Tools.ScratchDir} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
