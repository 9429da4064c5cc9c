// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peercred

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

func fromFD(fd int) (Peer, error) {
	credentials, err := unix.GetsockoptUcred(fd, unix.SOL_SOCKET, unix.SO_PEERCRED)
	if err != nil {
		return Peer{}, fmt.Errorf("reading SO_PEERCRED: %w", err)
	}
	pid := int(credentials.Pid)
	executable, err := os.Readlink("/proc/" + strconv.Itoa(pid) + "/exe")
	if err != nil {
		return Peer{}, fmt.Errorf("resolving executable of pid %d: %w", pid, err)
	}
	return Peer{PID: pid, UID: int(credentials.Uid), ExecutablePath: executable}, nil
}
