// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolstore

import (
	"errors"

	"golang.org/x/sys/unix"
)

const versionAttribute = "dev.patchbay.version"

func isNoAttribute(err error) bool { return errors.Is(err, unix.ENOATTR) }
