// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package credential

import (
	"errors"
	"testing"
)

func TestCacheLifecycle(t *testing.T) {
	var cache Cache
	if cache.Has() {
		t.Fatal("zero cache reports a credential")
	}
	if err := cache.Use(func([]byte) error { return nil }); !errors.Is(err, ErrNoCredential) {
		t.Fatalf("Use on empty cache = %v, want ErrNoCredential", err)
	}

	if err := cache.Set([]byte("first")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Set([]byte("second")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !cache.Has() {
		t.Fatal("Has() = false after Set")
	}

	var seen string
	if err := cache.Use(func(password []byte) error {
		seen = string(password)
		return nil
	}); err != nil {
		t.Fatalf("Use: %v", err)
	}
	if seen != "second" {
		t.Errorf("Use saw %q, want the replacement credential", seen)
	}

	cache.Clear()
	if cache.Has() {
		t.Error("Has() = true after Clear")
	}
}

func TestCacheUsePropagatesError(t *testing.T) {
	var cache Cache
	if err := cache.Set([]byte("pw")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	sentinel := errors.New("callback failed")
	if err := cache.Use(func([]byte) error { return sentinel }); !errors.Is(err, sentinel) {
		t.Errorf("Use = %v, want callback error", err)
	}
}

func TestCacheSetRejectsEmpty(t *testing.T) {
	var cache Cache
	if err := cache.Set(nil); err == nil {
		t.Error("Set(nil) succeeded")
	}
	if cache.Has() {
		t.Error("empty Set left a credential cached")
	}
}
