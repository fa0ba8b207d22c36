// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestKeyedLock(t *testing.T) {
	k := newKeyedLock()
	ctx := context.Background()

	unlock, err := k.Lock(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}

	// A different key is independent.
	unlockB, err := k.Lock(ctx, "b")
	if err != nil {
		t.Fatal(err)
	}
	unlockB()

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := k.Lock(waitCtx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("second Lock = %v, want DeadlineExceeded", err)
	}

	unlock()
	unlock() // idempotent

	unlock, err = k.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock()

	if n := k.size(); n != 0 {
		t.Errorf("lock entries leaked: %d", n)
	}
}
