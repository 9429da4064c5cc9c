// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package peercred

import (
	"bytes"
	"fmt"

	"golang.org/x/sys/unix"
)

func fromFD(fd int) (Peer, error) {
	pid, err := unix.GetsockoptInt(fd, unix.SOL_LOCAL, unix.LOCAL_PEERPID)
	if err != nil {
		return Peer{}, fmt.Errorf("reading LOCAL_PEERPID: %w", err)
	}
	credentials, err := unix.GetsockoptXucred(fd, unix.SOL_LOCAL, unix.LOCAL_PEERCRED)
	if err != nil {
		return Peer{}, fmt.Errorf("reading LOCAL_PEERCRED: %w", err)
	}
	executable, err := executablePath(pid)
	if err != nil {
		return Peer{}, err
	}
	return Peer{PID: pid, UID: int(credentials.Uid), ExecutablePath: executable}, nil
}

// executablePath reads kern.procargs2, which starts with argc as a
// 32-bit integer followed by the NUL-terminated exec path.
func executablePath(pid int) (string, error) {
	data, err := unix.SysctlRaw("kern.procargs2", pid)
	if err != nil {
		return "", fmt.Errorf("reading kern.procargs2 for pid %d: %w", pid, err)
	}
	if len(data) < 5 {
		return "", fmt.Errorf("kern.procargs2 for pid %d is truncated", pid)
	}
	path := data[4:]
	if end := bytes.IndexByte(path, 0); end >= 0 {
		path = path[:end]
	}
	if len(path) == 0 {
		return "", fmt.Errorf("kern.procargs2 for pid %d has no exec path", pid)
	}
	return string(path), nil
}
