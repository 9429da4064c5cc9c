// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin

package peercred

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patchbay-dev/patchbay/lib/testutil"
)

func TestFromConnIdentifiesSelf(t *testing.T) {
	t.Parallel()

	socketPath := filepath.Join(testutil.SocketDir(t), "peer.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer listener.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	server := testutil.RequireReceive(t, accepted, 5*time.Second, "accepting connection")
	defer server.Close()

	peer, err := FromConn(server.(*net.UnixConn))
	if err != nil {
		t.Fatalf("FromConn: %v", err)
	}
	if peer.PID != os.Getpid() {
		t.Errorf("PID = %d, want %d", peer.PID, os.Getpid())
	}
	if peer.UID != os.Getuid() {
		t.Errorf("UID = %d, want %d", peer.UID, os.Getuid())
	}

	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	if resolve(t, peer.ExecutablePath) != resolve(t, self) {
		t.Errorf("ExecutablePath = %q, want %q", peer.ExecutablePath, self)
	}
}

func resolve(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		t.Fatalf("EvalSymlinks(%q): %v", path, err)
	}
	return resolved
}
