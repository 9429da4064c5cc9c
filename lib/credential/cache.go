// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"errors"
	"sync"

	"github.com/patchbay-dev/patchbay/lib/secret"
)

// ErrNoCredential is returned by Use when nothing is cached.
var ErrNoCredential = errors.New("no administrator credential cached")

// Cache is an in-memory holder for one credential. The zero value is
// an empty cache ready for use.
type Cache struct {
	mu     sync.Mutex
	sealed *secret.Sealed
}

// Set replaces the cached credential with password and wipes the
// caller's slice.
func (c *Cache) Set(password []byte) error {
	sealed, err := secret.Seal(password)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sealed = sealed
	c.mu.Unlock()
	return nil
}

// Has reports whether a credential is cached.
func (c *Cache) Has() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sealed != nil
}

// Use calls fn with the plaintext credential. The slice is valid only
// during the call and is wiped afterwards.
func (c *Cache) Use(fn func(password []byte) error) error {
	c.mu.Lock()
	sealed := c.sealed
	c.mu.Unlock()
	if sealed == nil {
		return ErrNoCredential
	}

	buffer, err := sealed.Open()
	if err != nil {
		return err
	}
	defer buffer.Close()
	return fn(buffer.Bytes())
}

// Clear forgets the cached credential.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.sealed = nil
	c.mu.Unlock()
}
