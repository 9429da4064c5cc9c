// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"

	"github.com/spf13/pflag"

	"github.com/patchbay-dev/patchbay/lib/appscan"
	"github.com/patchbay-dev/patchbay/lib/command"
	"github.com/patchbay-dev/patchbay/lib/config"
	"github.com/patchbay-dev/patchbay/lib/credential"
	"github.com/patchbay-dev/patchbay/lib/elevation"
	"github.com/patchbay-dev/patchbay/lib/helper"
	"github.com/patchbay-dev/patchbay/lib/pipeline"
	"github.com/patchbay-dev/patchbay/lib/profile"
	"github.com/patchbay-dev/patchbay/lib/toolstore"
	"github.com/patchbay-dev/patchbay/lib/version"
)

// GlobalParams are the flags every runtime-backed command accepts.
// Embed it in a command's params struct.
type GlobalParams struct {
	ConfigPath string
	Verbose    bool
}

// AddFlags implements [FlagBinder].
func (g *GlobalParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&g.ConfigPath, "config", "", "config file (default $"+config.EnvironmentVariable+", else built-in defaults)")
	flagSet.BoolVarP(&g.Verbose, "verbose", "v", false, "debug logging")
}

// LoadConfig loads and validates the configuration named by the flags.
func (g *GlobalParams) LoadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if g.ConfigPath != "" {
		cfg, err = config.LoadFile(g.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Runtime is the wired set of components a command works with.
type Runtime struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tools    toolstore.Store
	Names    command.ToolNames
	Profiles *profile.Source
	Targets  *appscan.Index

	Credentials *credential.Cache

	// Helper is nil when the helper channel is disabled.
	Helper *helper.Client

	Executor *elevation.Executor
	Injector *pipeline.Injector

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// Open loads the configuration, reads the profile file, scans for
// targets, and starts the executor. Call Close when done.
func (g *GlobalParams) Open(ctx context.Context) (*Runtime, error) {
	cfg, err := g.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := NewCommandLogger(g.Verbose)
	if err := cfg.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("preparing directories: %w", err)
	}

	profiles, err := profile.Open(cfg.Profiles.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}

	scanner := appscan.Scanner{
		Roots:       cfg.Discovery.Roots,
		Extra:       profiles.Catalog().BundleLocations(),
		Concurrency: cfg.Discovery.Concurrency,
		Logger:      logger,
	}
	targets, err := scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning applications: %w", err)
	}
	logger.Debug("scan finished", "targets", len(targets))

	executable, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving own executable: %w", err)
	}

	runtime := &Runtime{
		Config:      cfg,
		Logger:      logger,
		Tools:       toolstore.Store{Dir: cfg.Tools.Dir},
		Names:       ToolNames(cfg),
		Profiles:    profiles,
		Targets:     appscan.NewIndex(targets),
		Credentials: &credential.Cache{},
	}

	executorConfig := elevation.Config{Credentials: runtime.Credentials, Logger: logger}
	if cfg.Helper.Enabled {
		client, _, err := NewHelperClient(cfg, executable, logger)
		if err != nil {
			return nil, err
		}
		runtime.Helper = client
		executorConfig.Channel = client
	}
	runtime.Executor = elevation.New(executorConfig)

	runtime.Injector = pipeline.New(pipeline.Config{
		Targets:        runtime.Targets,
		Profiles:       profiles,
		Tools:          runtime.Tools,
		Names:          runtime.Names,
		Executor:       runtime.Executor,
		User:           loginName(),
		ManifestEditor: executable,
		ScratchDir:     cfg.Tools.ScratchDir,
		BuildVersion:   version.Info(),
		Logger:         logger,
	})

	if cfg.Profiles.Watch {
		runtime.watchProfiles(ctx)
	}
	return runtime, nil
}

// watchProfiles reloads the profile file on change until Close. A
// target newly covered by a reloaded profile is picked up by the next
// Resolve; the application index is not rescanned.
func (r *Runtime) watchProfiles(ctx context.Context) {
	watchContext, cancel := context.WithCancel(ctx)
	r.stopWatch = cancel
	r.watchDone = make(chan struct{})
	go func() {
		defer close(r.watchDone)
		if err := r.Profiles.Watch(watchContext, nil); err != nil {
			r.Logger.Warn("profile file not watched", "path", r.Profiles.Path(), "error", err)
		}
	}()
}

// Close stops the profile watcher and the executor and drops the helper
// connection.
func (r *Runtime) Close() {
	if r.stopWatch != nil {
		r.stopWatch()
		<-r.watchDone
	}
	r.Executor.Close()
	if r.Helper != nil {
		if err := r.Helper.Close(); err != nil {
			r.Logger.Debug("closing helper connection", "error", err)
		}
	}
}

// NewHelperClient builds the helper client and the installer it uses,
// with the daemon binary resolved next to executable unless configured.
func NewHelperClient(cfg *config.Config, executable string, logger *slog.Logger) (*helper.Client, helper.LaunchdInstaller, error) {
	installWait, err := cfg.InstallWait()
	if err != nil {
		return nil, helper.LaunchdInstaller{}, err
	}
	installer := helper.LaunchdInstaller{
		Source:     cfg.HelperBinary(executable),
		SocketPath: cfg.Helper.SocketPath,
	}
	client := helper.NewClient(helper.ClientConfig{
		SocketPath:  cfg.Helper.SocketPath,
		Installer:   installer,
		InstallWait: installWait,
		Logger:      logger.With("component", "helper"),
	})
	return client, installer, nil
}

// ToolNames maps the configured tool file names.
func ToolNames(cfg *config.Config) command.ToolNames {
	return command.ToolNames{
		Rewriter: cfg.Tools.Rewriter,
		Optool:   cfg.Tools.Optool,
		Library:  cfg.Tools.Library,
		Keygen:   cfg.Tools.Keygen,
	}
}

// loginName is the user the key generator registers, falling back to
// $USER when the account database is unavailable.
func loginName() string {
	if current, err := user.Current(); err == nil {
		return current.Username
	}
	return os.Getenv("USER")
}
