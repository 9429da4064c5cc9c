// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewFromBytes(t *testing.T) {
	source := []byte("hunter2")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if buffer.String() != "hunter2" {
		t.Errorf("String() = %q, want %q", buffer.String(), "hunter2")
	}
	if buffer.Len() != 7 {
		t.Errorf("Len() = %d, want 7", buffer.Len())
	}
	if !bytes.Equal(source, make([]byte, len(source))) {
		t.Errorf("source not wiped: %q", source)
	}
	if !buffer.Equal([]byte("hunter2")) || buffer.Equal([]byte("hunter3")) {
		t.Error("Equal gave the wrong answer")
	}
}

func TestNewFromBytes_Empty(t *testing.T) {
	if _, err := NewFromBytes(nil); err == nil {
		t.Error("NewFromBytes(nil) should return error")
	}
}

func TestBuffer_Close_Idempotent(t *testing.T) {
	buffer, err := NewFromBytes([]byte("value"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if buffer.Len() != 0 {
		t.Errorf("Len() after Close = %d, want 0", buffer.Len())
	}
}

func TestBuffer_Bytes_PanicsAfterClose(t *testing.T) {
	buffer, err := NewFromBytes([]byte("value"))
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	buffer.Close()

	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatal("Bytes() after Close did not panic")
		}
		if !strings.Contains(recovered.(string), "closed") {
			t.Errorf("panic = %v", recovered)
		}
	}()
	buffer.Bytes()
}

func TestSealedRoundTrip(t *testing.T) {
	source := []byte("correct horse")
	sealed, err := Seal(source)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if !bytes.Equal(source, make([]byte, len(source))) {
		t.Errorf("source not wiped: %q", source)
	}
	if sealed.Size() != len("correct horse") {
		t.Errorf("Size() = %d", sealed.Size())
	}

	for attempt := range 2 {
		opened, err := sealed.Open()
		if err != nil {
			t.Fatalf("attempt %d: Open: %v", attempt, err)
		}
		if opened.String() != "correct horse" {
			t.Errorf("attempt %d: opened = %q", attempt, opened.String())
		}
		opened.Close()
	}
}

func TestZero(t *testing.T) {
	data := []byte("abc")
	Zero(data)
	if !bytes.Equal(data, []byte{0, 0, 0}) {
		t.Errorf("Zero left %q", data)
	}
}
