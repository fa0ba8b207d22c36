// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/content"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/notify"
	"github.com/tomtom215/agora/internal/store"
)

// RecordPost records a post by memberID. Posts do not evaluate the room;
// the room pass picks up the new poster counts. A zero or future at means now.
// A non-empty postID is passed on when the purger tracks posts itself.
func (e *Engine) RecordPost(ctx context.Context, roomID, memberID, postID string, at time.Time) (*models.Room, error) {
	return e.recordActivity(ctx, roomID, memberID, func(tx store.Tx, m *models.Membership, at time.Time) error {
		if err := e.activity.RecordPost(tx, m, at); err != nil {
			return err
		}
		if tracker, ok := e.purger.(content.Tracker); ok && postID != "" {
			tracker.TrackPost(m.RoomID, postID)
		}
		return nil
	}, at)
}

// RecordView records a view by memberID.
func (e *Engine) RecordView(ctx context.Context, roomID, memberID string, at time.Time) (*models.Room, error) {
	return e.recordActivity(ctx, roomID, memberID, func(_ store.Tx, m *models.Membership, at time.Time) error {
		e.activity.RecordView(m, at)
		return nil
	}, at)
}

func (e *Engine) recordActivity(ctx context.Context, roomID, memberID string, apply func(store.Tx, *models.Membership, time.Time) error, at time.Time) (*models.Room, error) {
	return e.mutateRoom(ctx, roomID, MemberActor(memberID), func(tx store.Tx, room *models.Room, _ *effects) error {
		if room.State == models.RoomStateDeleted {
			return ErrRoomDeleted
		}
		m, err := e.ledger.Get(tx, room.ID, memberID)
		if err != nil {
			return err
		}

		now := e.now()
		if at.IsZero() || at.After(now) {
			at = now
		}
		if err := apply(tx, m, at); err != nil {
			return fmt.Errorf("record activity: %w", err)
		}
		if err := tx.PutMembership(m); err != nil {
			return fmt.Errorf("store membership: %w", err)
		}

		if room.LastActivity == nil || at.After(*room.LastActivity) {
			room.LastActivity = models.TimePtr(at.UTC())
		}
		if _, err := e.refreshCounters(tx, room, now); err != nil {
			return err
		}
		return tx.PutRoom(room)
	})
}

// ComplianceResult summarizes a compliance evaluation of one room.
type ComplianceResult struct {
	Checked    int `json:"checked"`
	Violations int `json:"violations"`
	Restored   int `json:"restored"`
}

// Compliance requirement labels.
const (
	RequirementPost = "post"
	RequirementView = "view"
)

type complianceMetadata struct {
	Requirement string     `json:"requirement"`
	LastPostAt  *time.Time `json:"last_post_at,omitempty"`
	LastViewAt  *time.Time `json:"last_view_at,omitempty"`
}

// EvaluateCompliance recomputes the cadence flags of every active membership
// of an Active or Locked room. Only flag flips produce events and
// notifications, so repeating it without new activity changes nothing.
// Non-compliant members are never removed.
func (e *Engine) EvaluateCompliance(ctx context.Context, roomID string, actor audit.Actor) (ComplianceResult, error) {
	var result ComplianceResult

	_, err := e.mutateRoom(ctx, roomID, actor, func(tx store.Tx, room *models.Room, fx *effects) error {
		result = ComplianceResult{}
		if room.State != models.RoomStateActive && room.State != models.RoomStateLocked {
			return nil
		}

		now := e.now()
		active, err := e.ledger.ListActive(tx, room.ID)
		if err != nil {
			return err
		}

		var violated []*models.Membership
		compliant := 0
		for _, m := range active {
			result.Checked++
			meetsPost, meetsView := e.activity.Compliance(m, now)

			flips := []struct {
				requirement string
				was, is     bool
			}{
				{RequirementPost, m.MeetsPostRequirement, meetsPost},
				{RequirementView, m.MeetsViewRequirement, meetsView},
			}

			changed := false
			warned := false
			for _, f := range flips {
				if f.was == f.is {
					continue
				}
				changed = true

				typ, reason := audit.EventTypeComplianceRestored, f.requirement+" requirement met again"
				if !f.is {
					typ, reason = audit.EventTypeComplianceViolation, f.requirement+" requirement not met"
					result.Violations++
					warned = true
				} else {
					result.Restored++
				}

				event := e.newEvent(ctx, typ, room.ID, actor)
				event.MemberID = m.MemberID
				event.Reason = reason
				event.Metadata = audit.MustJSON(complianceMetadata{
					Requirement: f.requirement,
					LastPostAt:  m.LastPostAt,
					LastViewAt:  m.LastViewAt,
				})
				if !f.is {
					event.Severity = audit.SeverityWarning
				}
				if err := e.appendEvent(tx, fx, event); err != nil {
					return err
				}
				fx.compliance = append(fx.compliance, complianceFlip{f.requirement, !f.is})
			}

			if changed {
				m.MeetsPostRequirement = meetsPost
				m.MeetsViewRequirement = meetsView
				if err := tx.PutMembership(m); err != nil {
					return fmt.Errorf("store membership: %w", err)
				}
			}
			if warned {
				violated = append(violated, m)
			}
			if m.Compliant() {
				compliant++
			}
		}

		for _, m := range violated {
			fx.notes = append(fx.notes, notify.Notification{
				TemplateKey: notify.TemplateComplianceWarning,
				Recipients:  []string{m.MemberID},
				RoomID:      room.ID,
				Payload: audit.MustJSON(map[string]interface{}{
					"room_name":              room.Name,
					"meets_post_requirement": m.MeetsPostRequirement,
					"meets_view_requirement": m.MeetsViewRequirement,
				}),
				CreatedAt: now,
			})
		}

		if compliant == room.ActiveMemberCount {
			return nil
		}
		room.ActiveMemberCount = compliant
		return tx.PutRoom(room)
	})
	if err != nil {
		return ComplianceResult{}, err
	}
	return result, nil
}
