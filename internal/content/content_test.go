// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package content

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tomtom215/agora/internal/breaker"
)

func TestMemoryRegistryPurge(t *testing.T) {
	r := NewMemoryRegistry()
	r.TrackPost("r1", "p1")
	r.TrackPost("r1", "p2")
	r.TrackPost("r2", "p3")

	if err := r.PurgeRoom(context.Background(), "r1"); err != nil {
		t.Fatal(err)
	}
	if err := r.PurgeRoom(context.Background(), "r1"); err != nil {
		t.Fatalf("second purge must be idempotent: %v", err)
	}
	if r.Count("r1") != 0 {
		t.Errorf("r1 still has %d posts", r.Count("r1"))
	}
	if r.Count("r2") != 1 {
		t.Errorf("r2 posts = %d, want 1", r.Count("r2"))
	}
}

func TestHTTPPurger(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{"no content", http.StatusNoContent, false},
		{"already purged", http.StatusNotFound, false},
		{"server error", http.StatusInternalServerError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotMethod, gotAuth string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath, gotMethod, gotAuth = r.URL.Path, r.Method, r.Header.Get("Authorization")
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p, err := NewHTTPPurger(HTTPConfig{
				BaseURL: srv.URL,
				Token:   "secret",
				Breaker: breaker.DefaultConfig("test-" + tt.name),
			})
			if err != nil {
				t.Fatal(err)
			}

			err = p.PurgeRoom(context.Background(), "room-1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("PurgeRoom err = %v, wantErr %v", err, tt.wantErr)
			}
			if gotMethod != http.MethodDelete || gotPath != "/rooms/room-1/content" {
				t.Errorf("request = %s %s", gotMethod, gotPath)
			}
			if gotAuth != "Bearer secret" {
				t.Errorf("Authorization = %q", gotAuth)
			}
		})
	}
}

func TestNewHTTPPurgerRequiresURL(t *testing.T) {
	if _, err := NewHTTPPurger(HTTPConfig{}); err == nil {
		t.Error("expected error for empty base URL")
	}
}
