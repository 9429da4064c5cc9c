// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux && !darwin

package peercred

func fromFD(int) (Peer, error) {
	return Peer{}, ErrUnsupported
}
