// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peercred

import (
	"errors"
	"fmt"
	"net"
)

// ErrUnsupported is returned on platforms without peer credentials.
var ErrUnsupported = errors.New("peer credentials are not supported on this platform")

// Peer is the kernel's account of a connected process.
type Peer struct {
	PID int
	UID int

	// ExecutablePath is the on-disk image the process was started
	// from.
	ExecutablePath string
}

func (p Peer) String() string {
	return fmt.Sprintf("pid=%d uid=%d exe=%s", p.PID, p.UID, p.ExecutablePath)
}

// FromConn returns the peer of a connected Unix socket.
func FromConn(conn *net.UnixConn) (Peer, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return Peer{}, fmt.Errorf("accessing socket descriptor: %w", err)
	}

	var peer Peer
	var lookupError error
	if err := raw.Control(func(fd uintptr) {
		peer, lookupError = fromFD(int(fd))
	}); err != nil {
		return Peer{}, fmt.Errorf("accessing socket descriptor: %w", err)
	}
	if lookupError != nil {
		return Peer{}, lookupError
	}
	return peer, nil
}
