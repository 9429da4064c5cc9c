// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patchbay-dev/patchbay/lib/clock"
	"github.com/patchbay-dev/patchbay/lib/codec"
	"github.com/patchbay-dev/patchbay/lib/ipc"
	"github.com/patchbay-dev/patchbay/lib/shell"
)

const (
	defaultDialTimeout      = 5 * time.Second
	defaultHandshakeTimeout = 10 * time.Second
	defaultInstallWait      = 30 * time.Second
	defaultPollInterval     = 250 * time.Millisecond
)

// Installer puts the daemon in place. Implemented by LaunchdInstaller.
type Installer interface {
	// Installed reports whether the daemon binary is present.
	Installed() bool

	// Install copies the daemon into place and loads it. Returns an
	// *InstallationError on failure.
	Install(ctx context.Context) error
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// SocketPath defaults to SocketPath.
	SocketPath string

	// Installer installs the daemon when it is missing. Nil means the
	// daemon is managed elsewhere and is never installed.
	Installer Installer

	// DialTimeout bounds connecting; HandshakeTimeout bounds waiting for
	// the hello; InstallWait bounds waiting for the socket after
	// installation; PollInterval is how often the socket is checked.
	DialTimeout      time.Duration
	HandshakeTimeout time.Duration
	InstallWait      time.Duration
	PollInterval     time.Duration

	Clock  clock.Clock
	Logger *slog.Logger
}

// Client talks to the daemon. It serializes requests and keeps one
// connection open between them. Safe for concurrent use.
type Client struct {
	config ClientConfig

	installMu   sync.Mutex
	installDone bool
	installErr  error

	mu      sync.Mutex
	conn    net.Conn
	encoder *codec.Encoder
	decoder *codec.Decoder
	hello   ipc.Hello
}

// NewClient returns a client. Nothing is installed or dialed until the
// first request.
func NewClient(config ClientConfig) *Client {
	if config.SocketPath == "" {
		config.SocketPath = SocketPath
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultDialTimeout
	}
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = defaultHandshakeTimeout
	}
	if config.InstallWait <= 0 {
		config.InstallWait = defaultInstallWait
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaultPollInterval
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Client{config: config}
}

// EnsureInstalled installs the daemon if its binary is absent and waits
// for its socket. Installation is attempted at most once per Client: a
// failed installation is returned again by later calls, while a socket
// that has not appeared yet is waited for again.
func (c *Client) EnsureInstalled(ctx context.Context) error {
	c.installMu.Lock()
	defer c.installMu.Unlock()

	if c.installDone {
		if c.installErr != nil {
			return c.installErr
		}
		return c.waitForSocket(ctx)
	}
	if c.config.Installer == nil || c.config.Installer.Installed() {
		return nil
	}

	c.installDone = true
	c.config.Logger.Info("installing privileged helper", "label", Label)
	if err := c.config.Installer.Install(ctx); err != nil {
		var installation *InstallationError
		if !errors.As(err, &installation) {
			err = &InstallationError{Err: err}
		}
		c.installErr = err
		return err
	}
	return c.waitForSocket(ctx)
}

func (c *Client) waitForSocket(ctx context.Context) error {
	deadline := c.config.Clock.Now().Add(c.config.InstallWait)
	for {
		if _, err := os.Stat(c.config.SocketPath); err == nil {
			return nil
		}
		if !c.config.Clock.Now().Before(deadline) {
			return &ConnectionError{Op: "wait", Err: fmt.Errorf("socket %s did not appear within %v", c.config.SocketPath, c.config.InstallWait)}
		}
		select {
		case <-ctx.Done():
			return &ConnectionError{Op: "wait", Err: ctx.Err()}
		case <-c.config.Clock.After(c.config.PollInterval):
		}
	}
}

// Connect opens a fresh connection and waits for the daemon's hello,
// replacing any existing connection.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
	return c.connectLocked(ctx)
}

func (c *Client) connectLocked(ctx context.Context) error {
	dialContext, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()
	var dialer net.Dialer
	conn, err := dialer.DialContext(dialContext, "unix", c.config.SocketPath)
	if err != nil {
		return &ConnectionError{Op: "dial", Err: err}
	}

	// The daemon speaks first. Nothing is sent until the hello arrives.
	conn.SetReadDeadline(time.Now().Add(c.config.HandshakeTimeout))
	decoder := codec.NewDecoder(conn)
	var hello ipc.Hello
	if err := decoder.Decode(&hello); err != nil {
		conn.Close()
		if errors.Is(err, io.EOF) {
			err = errors.New("connection closed before hello; this executable may not be authorized to use the helper")
		}
		return &ConnectionError{Op: "handshake", Err: err}
	}
	if hello.Protocol != ipc.ProtocolVersion {
		conn.Close()
		return &ConnectionError{Op: "handshake", Err: fmt.Errorf("helper speaks protocol %d, want %d", hello.Protocol, ipc.ProtocolVersion)}
	}
	conn.SetReadDeadline(time.Time{})

	c.conn = conn
	c.encoder = codec.NewEncoder(conn)
	c.decoder = decoder
	c.hello = hello
	c.config.Logger.Debug("connected to helper", "version", hello.Version, "pid", hello.PID)
	return nil
}

func (c *Client) dropLocked() {
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = nil
	c.encoder = nil
	c.decoder = nil
}

// ExecuteElevated runs text with bash as root through the daemon,
// installing and connecting first when needed. A command the daemon
// could not start comes back as a non-zero result carrying the daemon's
// message, the same as a command that ran and failed.
func (c *Client) ExecuteElevated(ctx context.Context, text string) (shell.Result, error) {
	response, err := c.call(ctx, ipc.Request{Action: ipc.ActionExecute, Command: text})
	if err != nil {
		return shell.Result{}, err
	}
	result := shell.Result{Output: response.Output, ExitCode: response.ExitCode}
	if !response.OK {
		// The daemon was reached but could not run the command. That is
		// a failed command, not a broken connection.
		result.Output = appendLine(result.Output, "helper: "+response.Error)
		if result.ExitCode == 0 {
			result.ExitCode = 1
		}
	}
	return result, nil
}

func appendLine(output, line string) string {
	if output != "" && !strings.HasSuffix(output, "\n") {
		output += "\n"
	}
	return output + line + "\n"
}

// Status returns the daemon's self-description.
func (c *Client) Status(ctx context.Context) (ipc.Status, error) {
	response, err := c.call(ctx, ipc.Request{Action: ipc.ActionStatus})
	if err != nil {
		return ipc.Status{}, err
	}
	if !response.OK || response.Status == nil {
		return ipc.Status{}, &ConnectionError{Op: "status", Err: errors.New(response.Error)}
	}
	return *response.Status, nil
}

func (c *Client) call(ctx context.Context, request ipc.Request) (ipc.Response, error) {
	if err := c.EnsureInstalled(ctx); err != nil {
		return ipc.Response{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		if err := c.connectLocked(ctx); err != nil {
			return ipc.Response{}, err
		}
	}

	request.RequestID = uuid.NewString()
	response, err := c.roundTripLocked(ctx, request)
	if err != nil {
		c.dropLocked()
		return ipc.Response{}, &ConnectionError{Op: "request", Err: err}
	}
	return response, nil
}

func (c *Client) roundTripLocked(ctx context.Context, request ipc.Request) (ipc.Response, error) {
	deadline, _ := ctx.Deadline()
	c.conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		c.conn.SetDeadline(time.Now())
	})
	defer stop()

	if err := c.encoder.Encode(request); err != nil {
		return ipc.Response{}, err
	}
	var response ipc.Response
	if err := c.decoder.Decode(&response); err != nil {
		if ctx.Err() != nil {
			return ipc.Response{}, ctx.Err()
		}
		return ipc.Response{}, err
	}
	if response.RequestID != request.RequestID {
		return ipc.Response{}, fmt.Errorf("response for request %q, want %q", response.RequestID, request.RequestID)
	}
	return response, nil
}

// Close drops the connection. The client may be used again afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked()
	return nil
}
