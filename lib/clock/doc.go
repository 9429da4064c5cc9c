// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Code that timestamps run status or polls for the helper socket takes
// a [Clock] instead of calling the time package. Production uses
// [Real]; tests use [Fake], which stands still until Advance is called.
//
// A goroutine that calls After or Sleep on a fake clock registers a
// pending waiter. Tests call WaitForTimers before Advance so the
// advance cannot race the registration:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go client.EnsureInstalled(ctx)
//	fake.WaitForTimers(1)
//	fake.Advance(time.Second)
package clock
