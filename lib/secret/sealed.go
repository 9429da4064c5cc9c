// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
)

// Sealed is a secret kept encrypted in memory between uses.
type Sealed struct {
	enclave *memguard.Enclave
}

// Seal encrypts source into an enclave and wipes source.
func Seal(source []byte) (*Sealed, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: empty source")
	}
	return &Sealed{enclave: memguard.NewEnclave(source)}, nil
}

// Open decrypts the secret into a new Buffer. The caller must Close
// the buffer as soon as it is done with it.
func (s *Sealed) Open() (*Buffer, error) {
	locked, err := s.enclave.Open()
	if err != nil {
		return nil, fmt.Errorf("opening sealed secret: %w", err)
	}
	return &Buffer{locked: locked}, nil
}

// Size returns the plaintext length.
func (s *Sealed) Size() int {
	return s.enclave.Size()
}
