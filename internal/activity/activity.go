// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package activity aggregates posting and viewing activity per room.
//
// Posts are folded into day buckets keyed by (room, day, member) so the cost
// of counting distinct posters depends on the window length and the number of
// posters, not on the lifetime post volume. A short ring of recent post
// timestamps per room backs reply-burst detection.
//
// The query methods are side-effect free; only RecordPost and RecordView write.
package activity

import (
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/store"
)

// Config holds aggregation windows.
type Config struct {
	// PosterWindow is the trailing window for distinct poster counts.
	PosterWindow time.Duration

	// BurstPosts is how many posts within BurstWindow make a burst.
	BurstPosts int

	// BurstWindow is the span a burst must fit in.
	BurstWindow time.Duration

	// PostRequirement is how recently a member must have posted to be compliant.
	PostRequirement time.Duration

	// ViewRequirement is how recently a member must have viewed to be compliant.
	ViewRequirement time.Duration
}

// DefaultConfig returns the default windows.
func DefaultConfig() Config {
	return Config{
		PosterWindow:    72 * time.Hour,
		BurstPosts:      5,
		BurstWindow:     10 * time.Minute,
		PostRequirement: 14 * 24 * time.Hour,
		ViewRequirement: 7 * 24 * time.Hour,
	}
}

// MemberActivity is the activity summary of one active membership.
type MemberActivity struct {
	MemberID   string     `json:"member_id"`
	LastPostAt *time.Time `json:"last_post_at,omitempty"`
	LastViewAt *time.Time `json:"last_view_at,omitempty"`
	PostCount  int        `json:"post_count"`
}

// Aggregator computes activity aggregates inside store transactions.
type Aggregator struct {
	cfg Config
}

// NewAggregator creates an aggregator, filling zero fields with defaults.
func NewAggregator(cfg Config) *Aggregator {
	def := DefaultConfig()
	if cfg.PosterWindow <= 0 {
		cfg.PosterWindow = def.PosterWindow
	}
	if cfg.BurstPosts <= 0 {
		cfg.BurstPosts = def.BurstPosts
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = def.BurstWindow
	}
	if cfg.PostRequirement <= 0 {
		cfg.PostRequirement = def.PostRequirement
	}
	if cfg.ViewRequirement <= 0 {
		cfg.ViewRequirement = def.ViewRequirement
	}
	return &Aggregator{cfg: cfg}
}

// Config returns the effective configuration.
func (a *Aggregator) Config() Config {
	return a.cfg
}

// RecordPost folds a post by m into the room's buckets and burst ring and
// updates the membership's post bookkeeping. The caller persists m.
func (a *Aggregator) RecordPost(tx store.Tx, m *models.Membership, at time.Time) error {
	at = at.UTC()

	if err := tx.PutPostBucket(m.RoomID, m.MemberID, at); err != nil {
		return fmt.Errorf("record post bucket: %w", err)
	}
	if _, err := tx.PrunePostBuckets(m.RoomID, at.Add(-a.cfg.PosterWindow)); err != nil {
		return fmt.Errorf("prune post buckets: %w", err)
	}

	ring, err := tx.GetBurst(m.RoomID)
	if err != nil {
		return fmt.Errorf("load burst ring: %w", err)
	}
	ring = append(ring, at)
	sort.Slice(ring, func(i, j int) bool { return ring[i].Before(ring[j]) })
	if len(ring) > a.cfg.BurstPosts {
		ring = ring[len(ring)-a.cfg.BurstPosts:]
	}
	if err := tx.PutBurst(m.RoomID, ring); err != nil {
		return fmt.Errorf("store burst ring: %w", err)
	}

	if m.LastPostAt == nil || at.After(*m.LastPostAt) {
		m.LastPostAt = models.TimePtr(at)
	}
	m.PostCount++
	return nil
}

// RecordView updates the membership's view bookkeeping. The caller persists m.
func (a *Aggregator) RecordView(m *models.Membership, at time.Time) {
	at = at.UTC()
	if m.LastViewAt == nil || at.After(*m.LastViewAt) {
		m.LastViewAt = models.TimePtr(at)
	}
}

// UniquePosters counts distinct members who posted in (now-window, now].
func (a *Aggregator) UniquePosters(tx store.Tx, roomID string, now time.Time) (int, error) {
	posters, err := tx.PostersSince(roomID, now.Add(-a.cfg.PosterWindow))
	if err != nil {
		return 0, fmt.Errorf("count posters: %w", err)
	}

	n := 0
	for _, at := range posters {
		if !at.After(now) && at.After(now.Add(-a.cfg.PosterWindow)) {
			n++
		}
	}
	return n, nil
}

// MemberActivity returns the activity of every active membership, ordered by member ID.
func (a *Aggregator) MemberActivity(tx store.Tx, roomID string) ([]MemberActivity, error) {
	memberships, err := tx.ListMemberships(roomID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	out := make([]MemberActivity, 0, len(memberships))
	for _, m := range memberships {
		if !m.IsActive {
			continue
		}
		out = append(out, MemberActivity{
			MemberID:   m.MemberID,
			LastPostAt: m.LastPostAt,
			LastViewAt: m.LastViewAt,
			PostCount:  m.PostCount,
		})
	}
	return out, nil
}

// RecentBurst reports whether BurstPosts posts landed within BurstWindow
// before now.
func (a *Aggregator) RecentBurst(tx store.Tx, roomID string, now time.Time) (bool, error) {
	ring, err := tx.GetBurst(roomID)
	if err != nil {
		return false, fmt.Errorf("load burst ring: %w", err)
	}

	cutoff := now.Add(-a.cfg.BurstWindow)
	n := 0
	for _, at := range ring {
		if !at.Before(cutoff) && !at.After(now) {
			n++
		}
	}
	return n >= a.cfg.BurstPosts, nil
}

// Compliance returns the cadence flags of m at now. A member who never
// posted or viewed is measured from the start of the current membership
// period.
func (a *Aggregator) Compliance(m *models.Membership, now time.Time) (meetsPost, meetsView bool) {
	return within(m.LastPostAt, m.JoinedAt, now, a.cfg.PostRequirement),
		within(m.LastViewAt, m.JoinedAt, now, a.cfg.ViewRequirement)
}

func within(last *time.Time, joined, now time.Time, window time.Duration) bool {
	ref := joined
	if last != nil && last.After(ref) {
		ref = *last
	}
	return now.Sub(ref) <= window
}
