// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package breaker

import (
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New(Config{Name: "test-open", MaxRequests: 1, Timeout: time.Minute, FailureThreshold: 3})
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		if err := Execute(cb, func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("call %d: err = %v, want boom", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	called := false
	err := Execute(cb, func() error { called = true; return nil })
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if called {
		t.Error("open breaker must not call through")
	}
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	cb := New(Config{Name: "test-reset", FailureThreshold: 2})
	boom := errors.New("boom")

	_ = Execute(cb, func() error { return boom })
	_ = Execute(cb, func() error { return nil })
	_ = Execute(cb, func() error { return boom })

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}
