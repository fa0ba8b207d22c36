// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package content talks to the subsystem that owns room-scoped posts.
//
// When a room is deleted the engine hard-purges its content through a
// Purger inside the deletion transaction. PurgeRoom must be idempotent:
// the engine calls it again if the deletion has to be retried.
package content

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/agora/internal/breaker"
	"github.com/tomtom215/agora/internal/metrics"
)

// Purger hard-deletes all content scoped to a room.
type Purger interface {
	PurgeRoom(ctx context.Context, roomID string) error
}

// Tracker is implemented by purgers that keep their own index of posts.
// The engine reports every post that carries an ID to such a purger.
type Tracker interface {
	TrackPost(roomID, postID string)
}

// MemoryRegistry tracks room content in memory. It is the purger used when
// no content service is configured: posts reported with an ID are tracked
// and dropped when their room is deleted.
type MemoryRegistry struct {
	mu    sync.RWMutex
	posts map[string]map[string]struct{}
}

// NewMemoryRegistry creates an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{posts: make(map[string]map[string]struct{})}
}

// TrackPost implements Tracker.
func (r *MemoryRegistry) TrackPost(roomID, postID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.posts[roomID] == nil {
		r.posts[roomID] = make(map[string]struct{})
	}
	r.posts[roomID][postID] = struct{}{}
}

// Count returns the number of posts registered in a room.
func (r *MemoryRegistry) Count(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.posts[roomID])
}

// PurgeRoom implements Purger.
func (r *MemoryRegistry) PurgeRoom(ctx context.Context, roomID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.posts, roomID)
	metrics.ContentPurges.WithLabelValues("success").Inc()
	return nil
}

// HTTPConfig configures HTTPPurger.
type HTTPConfig struct {
	// BaseURL of the content service, e.g. http://content:8080/internal.
	BaseURL string

	// Token is sent as a bearer token when set.
	Token string

	// Timeout bounds each request.
	Timeout time.Duration

	// Breaker configures the circuit breaker around purge calls.
	Breaker breaker.Config
}

// HTTPPurger purges room content through the content service's HTTP API:
//
//	DELETE {BaseURL}/rooms/{roomID}/content
//
// 2xx and 404 responses count as success.
type HTTPPurger struct {
	cfg    HTTPConfig
	client *http.Client
	cb     *gobreaker.CircuitBreaker[interface{}]
}

// NewHTTPPurger creates an HTTP purger.
func NewHTTPPurger(cfg HTTPConfig) (*HTTPPurger, error) {
	if _, err := url.Parse(cfg.BaseURL); err != nil || cfg.BaseURL == "" {
		return nil, fmt.Errorf("invalid content service URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Breaker.Name == "" {
		cfg.Breaker = breaker.DefaultConfig("content-purge")
	}

	return &HTTPPurger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     breaker.New(cfg.Breaker),
	}, nil
}

// PurgeRoom implements Purger.
func (p *HTTPPurger) PurgeRoom(ctx context.Context, roomID string) error {
	err := breaker.Execute(p.cb, func() error {
		return p.purge(ctx, roomID)
	})
	if err != nil {
		metrics.ContentPurges.WithLabelValues("failure").Inc()
		return fmt.Errorf("purge room %s content: %w", roomID, err)
	}
	metrics.ContentPurges.WithLabelValues("success").Inc()
	return nil
}

func (p *HTTPPurger) purge(ctx context.Context, roomID string) error {
	endpoint := p.cfg.BaseURL + "/rooms/" + url.PathEscape(roomID) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	if p.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		return nil
	}
	return fmt.Errorf("content service returned %d", resp.StatusCode)
}
