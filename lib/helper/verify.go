// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package helper

import (
	"context"
	"fmt"
	"net"

	"github.com/patchbay-dev/patchbay/lib/codesign"
	"github.com/patchbay-dev/patchbay/lib/peercred"
)

// Verifier decides whether a connected peer may use the daemon.
type Verifier interface {
	Verify(ctx context.Context, conn *net.UnixConn) (peercred.Peer, error)
}

// RequirementVerifier admits peers whose executable satisfies a code
// signing requirement.
type RequirementVerifier struct {
	Requirement codesign.Requirement
	Resolver    codesign.Resolver

	// Peers reads peer credentials. Defaults to peercred.FromConn.
	Peers func(*net.UnixConn) (peercred.Peer, error)
}

// Verify returns the peer when its code identity satisfies the
// requirement.
func (v RequirementVerifier) Verify(ctx context.Context, conn *net.UnixConn) (peercred.Peer, error) {
	peers := v.Peers
	if peers == nil {
		peers = peercred.FromConn
	}
	peer, err := peers(conn)
	if err != nil {
		return peercred.Peer{}, fmt.Errorf("reading peer credentials: %w", err)
	}
	identity, err := v.Resolver.Resolve(ctx, peer.ExecutablePath)
	if err != nil {
		return peer, fmt.Errorf("resolving code identity of %s: %w", peer, err)
	}
	if err := v.Requirement.Check(identity); err != nil {
		return peer, err
	}
	return peer, nil
}
