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
	"github.com/tomtom215/agora/internal/ledger"
	"github.com/tomtom215/agora/internal/lifecycle"
	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/models"
	"github.com/tomtom215/agora/internal/notify"
	"github.com/tomtom215/agora/internal/store"
)

// transitionMetadata is stored with every transition event.
type transitionMetadata struct {
	Trigger           string `json:"trigger"`
	MemberCount       int    `json:"member_count"`
	ActiveMemberCount int    `json:"active_member_count"`
	UniquePosters72h  int    `json:"unique_posters_72h"`
	Source            string `json:"source"`
}

// transitionPayload is the notification payload of a transition.
type transitionPayload struct {
	RoomName  string `json:"room_name"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	Reason    string `json:"reason"`
}

// EvaluateRoom re-evaluates a room's lifecycle state. Deleted rooms are
// returned unchanged.
func (e *Engine) EvaluateRoom(ctx context.Context, roomID string, actor audit.Actor) (*models.Room, error) {
	source := SourceAPI
	if actor.Type == audit.ActorScheduler {
		source = SourceScheduler
	}
	return e.mutateRoom(ctx, roomID, actor, func(tx store.Tx, room *models.Room, fx *effects) error {
		return e.evaluate(ctx, tx, room, actor, source, fx)
	})
}

// refreshCounters recomputes the derived counters of room from its
// memberships and activity buckets and returns the memberships.
func (e *Engine) refreshCounters(tx store.Tx, room *models.Room, now time.Time) ([]*models.Membership, error) {
	memberships, err := tx.ListMemberships(room.ID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	counts := ledger.Count(memberships)
	room.MemberCount = counts.Members
	room.ActiveMemberCount = counts.Compliant

	posters, err := e.activity.UniquePosters(tx, room.ID, now)
	if err != nil {
		return nil, err
	}
	room.UniquePosters72h = posters
	return memberships, nil
}

// evaluate runs the state machine on room and applies the decision inside tx.
// Failures are returned as *EvaluationError.
func (e *Engine) evaluate(ctx context.Context, tx store.Tx, room *models.Room, actor audit.Actor, source string, fx *effects) error {
	if room.State.IsTerminal() {
		fx.evaluations = append(fx.evaluations, evalOutcome{source, "unchanged"})
		return nil
	}
	if err := e.applyEvaluation(ctx, tx, room, actor, source, fx); err != nil {
		return &EvaluationError{RoomID: room.ID, Err: err}
	}
	return nil
}

func (e *Engine) applyEvaluation(ctx context.Context, tx store.Tx, room *models.Room, actor audit.Actor, source string, fx *effects) error {
	now := e.now()

	memberships, err := e.refreshCounters(tx, room, now)
	if err != nil {
		return err
	}
	burst, err := e.activity.RecentBurst(tx, room.ID, now)
	if err != nil {
		return err
	}

	decision := lifecycle.Evaluate(e.cfg.Lifecycle, lifecycle.Snapshot{Room: room, Now: now, Burst: burst})
	recipients := activeMemberIDs(memberships)
	meta := transitionMetadata{
		MemberCount:       room.MemberCount,
		ActiveMemberCount: room.ActiveMemberCount,
		UniquePosters72h:  room.UniquePosters72h,
		Source:            source,
	}

	for _, t := range decision.Transitions {
		meta.Trigger = string(t.Trigger)
		event := e.newEvent(ctx, transitionEventType(t), room.ID, actor)
		event.FromState = string(t.From)
		event.ToState = string(t.To)
		event.Reason = t.Reason
		event.Metadata = audit.MustJSON(meta)
		if t.To == models.RoomStateLocked || t.To == models.RoomStateDeleted {
			event.Severity = audit.SeverityWarning
		}
		if err := e.appendEvent(tx, fx, event); err != nil {
			return err
		}

		notifyTo := recipients
		if t.To == models.RoomStateDeleted {
			ended, err := e.deleteCascade(ctx, tx, room, actor, now, fx)
			if err != nil {
				return err
			}
			notifyTo = memberIDs(ended)
		}

		fx.notes = append(fx.notes, notify.Notification{
			TemplateKey: transitionTemplate(t),
			Recipients:  notifyTo,
			RoomID:      room.ID,
			Payload: audit.MustJSON(transitionPayload{
				RoomName:  room.Name,
				FromState: string(t.From),
				ToState:   string(t.To),
				Reason:    t.Reason,
			}),
			CreatedAt: now,
		})

		if t.From == models.RoomStatePending && t.To == models.RoomStateActive && decision.Final(room.State) != models.RoomStateDeleted {
			fx.grants = append(fx.grants, e.grant(room.CreatorID, notify.BadgeCommunityBuilder, room.ID,
				fmt.Sprintf("room %q reached %d members", room.Name, room.MemberCount), now))
		}
		fx.transitions = append(fx.transitions, t)
	}

	if decision.DeferralStarted && decision.Deferred != nil {
		event := e.newEvent(ctx, audit.EventTypeRoomEvaluationDeferred, room.ID, actor)
		event.FromState = string(decision.Deferred.From)
		event.ToState = string(decision.Deferred.To)
		event.Reason = "recent reply burst defers " + decision.Deferred.Reason
		event.Metadata = audit.MustJSON(map[string]interface{}{
			"max_deferral": e.cfg.Lifecycle.MaxDeferral.String(),
		})
		if err := e.appendEvent(tx, fx, event); err != nil {
			return err
		}
	}

	decision.Apply(room, now)
	if room.State == models.RoomStateDeleted {
		room.MemberCount = 0
		room.ActiveMemberCount = 0
	}
	room.LastEvaluatedAt = models.TimePtr(now)
	if err := tx.PutRoom(room); err != nil {
		return fmt.Errorf("store room: %w", err)
	}

	result := "unchanged"
	switch {
	case decision.Changed():
		result = "changed"
	case decision.Deferred != nil:
		result = "deferred"
	}
	fx.evaluations = append(fx.evaluations, evalOutcome{source, result})
	return nil
}

// deleteCascade ends every membership and purges room content. It returns
// the memberships that were active at the moment of deletion.
func (e *Engine) deleteCascade(ctx context.Context, tx store.Tx, room *models.Room, actor audit.Actor, now time.Time, fx *effects) ([]*models.Membership, error) {
	ended, err := e.ledger.EndAll(tx, room.ID, now)
	if err != nil {
		return nil, fmt.Errorf("end memberships: %w", err)
	}
	for _, m := range ended {
		event := e.newEvent(ctx, audit.EventTypeMemberEnded, room.ID, actor)
		event.MemberID = m.MemberID
		event.Reason = "room deleted"
		if err := e.appendEvent(tx, fx, event); err != nil {
			return nil, err
		}
	}

	if err := e.purger.PurgeRoom(ctx, room.ID); err != nil {
		return nil, fmt.Errorf("purge content: %w", err)
	}
	return ended, nil
}

func (e *Engine) grant(memberID, badge, roomID, reason string, now time.Time) notify.GrantRequest {
	g := notify.GrantRequest{
		MemberID:  memberID,
		Badge:     badge,
		Reason:    reason,
		RoomID:    roomID,
		CreatedAt: now,
	}
	if e.cfg.BadgeTTL > 0 {
		g.ExpiresAt = models.TimePtr(now.Add(e.cfg.BadgeTTL))
	}
	return g
}

func transitionEventType(t lifecycle.Transition) audit.EventType {
	switch t.To {
	case models.RoomStateActive:
		if t.From == models.RoomStateLocked {
			return audit.EventTypeRoomUnlocked
		}
		return audit.EventTypeRoomActivated
	case models.RoomStateLocked:
		return audit.EventTypeRoomLocked
	case models.RoomStateDeleted:
		return audit.EventTypeRoomDeleted
	}
	return audit.EventType("room." + string(t.To))
}

func transitionTemplate(t lifecycle.Transition) string {
	switch t.To {
	case models.RoomStateActive:
		if t.From == models.RoomStateLocked {
			return notify.TemplateRoomUnlocked
		}
		return notify.TemplateRoomActivated
	case models.RoomStateLocked:
		return notify.TemplateRoomLocked
	case models.RoomStateDeleted:
		return notify.TemplateRoomDeleted
	}
	return "room." + string(t.To)
}

func activeMemberIDs(memberships []*models.Membership) []string {
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		if m.IsActive {
			ids = append(ids, m.MemberID)
		}
	}
	return ids
}

func memberIDs(memberships []*models.Membership) []string {
	ids := make([]string, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.MemberID)
	}
	return ids
}

func recordOutcome(fx *effects, elapsed time.Duration) {
	for _, ev := range fx.evaluations {
		metrics.RecordEvaluation(ev.source, ev.result, elapsed)
	}
	for _, t := range fx.transitions {
		metrics.RecordTransition(string(t.From), string(t.To), string(t.Trigger))
	}
	for _, c := range fx.compliance {
		metrics.RecordComplianceChange(c.requirement, c.violated)
	}
}

func recordFailureMetric(elapsed time.Duration) {
	metrics.RecordEvaluation("any", "failed", elapsed)
}
