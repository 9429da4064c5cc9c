// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Patchbay-helper is the privileged helper daemon. launchd runs it as
// root; it accepts connections on a Unix socket from code-signed
// patchbay clients and runs their commands with bash.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/patchbay-dev/patchbay/lib/codesign"
	"github.com/patchbay-dev/patchbay/lib/helper"
	"github.com/patchbay-dev/patchbay/lib/process"
	"github.com/patchbay-dev/patchbay/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var socketPath string
	var showVersion bool
	var debug bool

	flags := pflag.NewFlagSet("patchbay-helper", pflag.ContinueOnError)
	flags.StringVar(&socketPath, "socket", helper.SocketPath, "Unix socket to listen on")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	flags.BoolVar(&debug, "debug", false, "debug logging")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		fmt.Printf("patchbay-helper %s\n", version.Info())
		return nil
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if os.Geteuid() != 0 {
		logger.Warn("not running as root; elevated commands will fail")
	}

	requirement := helper.ClientRequirement()
	if err := requirement.Validate(); err != nil {
		return fmt.Errorf("client requirement: %w", err)
	}

	binaryHash, binaryPath, err := version.SelfDigest()
	if err != nil {
		logger.Warn("binary hash unavailable", "error", err)
	}

	server, err := helper.NewServer(helper.ServerConfig{
		SocketPath: socketPath,
		Verifier: helper.RequirementVerifier{
			Requirement: requirement,
			Resolver:    codesign.ToolResolver{},
		},
		Logger:     logger,
		Version:    version.Info(),
		BinaryHash: binaryHash,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting patchbay-helper",
		"version", version.Info(),
		"socket", socketPath,
		"binary", binaryPath,
		"requirement", requirement.String(),
	)
	if err := server.Serve(ctx); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	logger.Info("patchbay-helper stopped")
	return nil
}
