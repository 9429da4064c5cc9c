// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"

	"github.com/awnumar/memguard"
)

// Buffer holds sensitive data in locked, guarded memory that is wiped
// on Close.
//
// A Buffer must not be copied after creation. After Close, any access
// to the buffer's contents panics.
type Buffer struct {
	locked *memguard.LockedBuffer
}

// NewFromBytes moves source into a protected buffer. The source slice
// is wiped, so the caller's copy no longer holds the secret.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: empty source")
	}
	return &Buffer{locked: memguard.NewBufferFromBytes(source)}, nil
}

// Bytes returns the secret data. The returned slice points into the
// guarded region; do not retain it beyond the Buffer's lifetime.
// Panics if the buffer has been closed.
func (b *Buffer) Bytes() []byte {
	b.mustBeAlive()
	return b.locked.Bytes()
}

// String returns a heap copy of the secret. Use only at API
// boundaries that require a string. Panics if the buffer has been
// closed.
func (b *Buffer) String() string {
	b.mustBeAlive()
	return string(b.locked.Bytes())
}

// Len returns the size of the secret data.
func (b *Buffer) Len() int {
	if b.locked == nil || !b.locked.IsAlive() {
		return 0
	}
	return b.locked.Size()
}

// Equal reports whether the buffer holds other, in constant time.
func (b *Buffer) Equal(other []byte) bool {
	b.mustBeAlive()
	return b.locked.EqualTo(other)
}

// Close wipes and releases the buffer. Close is idempotent.
func (b *Buffer) Close() error {
	if b.locked != nil {
		b.locked.Destroy()
	}
	return nil
}

func (b *Buffer) mustBeAlive() {
	if b.locked == nil || !b.locked.IsAlive() {
		panic("secret: use of closed Buffer")
	}
}

// Zero overwrites data in place. Use it for transient heap copies of
// secret material.
func Zero(data []byte) {
	memguard.WipeBytes(data)
}
