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
	"sync"
	"sync/atomic"
	"time"

	"github.com/patchbay-dev/patchbay/lib/clock"
	"github.com/patchbay-dev/patchbay/lib/codec"
	"github.com/patchbay-dev/patchbay/lib/ipc"
	"github.com/patchbay-dev/patchbay/lib/shell"
)

// idleTimeout closes a verified connection that sends nothing for this
// long. A pipeline run sends its next command within seconds of the
// previous response.
const idleTimeout = 10 * time.Minute

// writeTimeout bounds writing one response.
const writeTimeout = 10 * time.Second

// ServerConfig configures a Server.
type ServerConfig struct {
	// SocketPath defaults to SocketPath.
	SocketPath string

	// Verifier admits or rejects each connection. Required.
	Verifier Verifier

	// Runner runs commands. Defaults to shell.Exec.
	Runner shell.Runner

	Clock  clock.Clock
	Logger *slog.Logger

	// Version and BinaryHash are reported by the status action.
	Version    string
	BinaryHash string
}

// Server is the privileged side of the channel.
type Server struct {
	config    ServerConfig
	startedAt time.Time
	executed  atomic.Uint64

	// activeConnections lets Serve wait for in-flight commands before
	// returning.
	activeConnections sync.WaitGroup
}

// NewServer validates config and returns a server ready to Serve.
func NewServer(config ServerConfig) (*Server, error) {
	if config.Verifier == nil {
		return nil, errors.New("helper server requires a verifier")
	}
	if config.SocketPath == "" {
		config.SocketPath = SocketPath
	}
	if config.Runner == nil {
		config.Runner = shell.Exec{}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Server{config: config, startedAt: config.Clock.Now()}, nil
}

// Serve accepts connections until ctx is cancelled, then stops
// accepting and waits for active connections. Commands already running
// are allowed to finish.
//
// A stale socket file is removed before listening. The socket file is
// removed on return.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := listenSocket(s.config.SocketPath)
	if err != nil {
		return err
	}
	defer func() {
		listener.Close()
		os.Remove(s.config.SocketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.config.Logger.Info("helper listening", "path", s.config.SocketPath, "version", s.config.Version)

	for {
		conn, err := listener.AcceptUnix()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.config.Logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// listenSocket binds path and opens it to every local user. Access is
// decided per connection by code identity, not by file mode.
func listenSocket(path string) (*net.UnixListener, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o666); err != nil {
		listener.Close()
		return nil, fmt.Errorf("setting permissions on %s: %w", path, err)
	}
	return listener, nil
}

func (s *Server) handleConnection(ctx context.Context, conn *net.UnixConn) {
	defer conn.Close()

	peer, err := s.config.Verifier.Verify(ctx, conn)
	if err != nil {
		s.config.Logger.Warn("rejected connection", "peer", peer.String(), "error", err)
		return
	}
	logger := s.config.Logger.With("peer_pid", peer.PID, "peer_uid", peer.UID)
	logger.Info("accepted connection", "executable", peer.ExecutablePath)

	encoder := codec.NewEncoder(conn)
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := encoder.Encode(ipc.Hello{
		Protocol: ipc.ProtocolVersion,
		Version:  s.config.Version,
		PID:      os.Getpid(),
	}); err != nil {
		logger.Debug("writing hello failed", "error", err)
		return
	}

	// Shutdown interrupts a connection waiting for its next request but
	// not one running a command.
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	decoder := codec.NewDecoder(conn)
	for {
		conn.SetReadDeadline(time.Now().Add(idleTimeout))
		if ctx.Err() != nil {
			return
		}
		var request ipc.Request
		if err := decoder.Decode(&request); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Debug("reading request failed", "error", err)
			}
			return
		}

		response := s.dispatch(ctx, logger, request)
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := encoder.Encode(response); err != nil {
			logger.Debug("writing response failed", "request_id", request.RequestID, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, logger *slog.Logger, request ipc.Request) ipc.Response {
	response := ipc.Response{RequestID: request.RequestID}
	switch request.Action {
	case ipc.ActionExecute:
		if request.Command == "" {
			response.Error = "missing command"
			return response
		}
		logger.Info("executing command", "request_id", request.RequestID)
		logger.Debug("command text", "request_id", request.RequestID, "command", request.Command)

		result, err := s.config.Runner.Run(context.WithoutCancel(ctx), shell.Bash(request.Command))
		s.executed.Add(1)
		if err != nil {
			logger.Error("command did not run", "request_id", request.RequestID, "error", err)
			response.Error = err.Error()
			response.Output = result.Output
			response.ExitCode = result.ExitCode
			return response
		}
		logger.Info("command finished", "request_id", request.RequestID, "exit_code", result.ExitCode)
		response.OK = true
		response.Output = result.Output
		response.ExitCode = result.ExitCode

	case ipc.ActionStatus:
		response.OK = true
		response.Status = &ipc.Status{
			Version:    s.config.Version,
			BinaryHash: s.config.BinaryHash,
			PID:        os.Getpid(),
			StartedAt:  s.startedAt,
			Executed:   s.executed.Load(),
		}

	default:
		response.Error = fmt.Sprintf("unknown action %q", request.Action)
	}
	return response
}
