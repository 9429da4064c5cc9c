// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

type sampleMessage struct {
	Action  string `cbor:"action"`
	Command string `cbor:"command,omitempty"`
	Count   int    `cbor:"count"`
}

func TestMarshalDeterministic(t *testing.T) {
	message := map[string]any{"zeta": 1, "alpha": "x", "mid": []string{"a"}}

	first, err := Marshal(message)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(message)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal produced different bytes for the same map")
		}
	}
}

func TestStreamCarriesSeveralMessages(t *testing.T) {
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for index := range 3 {
		if err := encoder.Encode(sampleMessage{Action: "execute", Count: index}); err != nil {
			t.Fatalf("Encode %d: %v", index, err)
		}
	}

	decoder := NewDecoder(&buffer)
	for index := range 3 {
		var decoded sampleMessage
		if err := decoder.Decode(&decoded); err != nil {
			t.Fatalf("Decode %d: %v", index, err)
		}
		if decoded.Count != index || decoded.Action != "execute" {
			t.Errorf("message %d = %+v", index, decoded)
		}
	}
}

func TestUnmarshalAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"key": map[string]any{"nested": true}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	outer, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := outer["key"].(map[string]any); !ok {
		t.Errorf("nested value %T, want map[string]any", outer["key"])
	}
}

func TestUnmarshalRejectsDeepNesting(t *testing.T) {
	var value any = "leaf"
	for range 40 {
		value = []any{value}
	}
	// Encoding is unbounded; only decoding enforces the limit.
	data, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded any
	if err := Unmarshal(data, &decoded); err == nil {
		t.Error("Unmarshal accepted 40 levels of nesting")
	}
}
