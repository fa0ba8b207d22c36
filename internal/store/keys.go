// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package store

import (
	"fmt"
	"strings"
	"time"
)

// Key prefixes
const (
	prefixRoom     = "room/"
	prefixRoomName = "roomname/"
	prefixLive     = "live/"
	prefixMember   = "member/"
	prefixActivity = "activity/"
	prefixBurst    = "burst/"
	prefixEvent    = "event/"

	// dayLayout names an activity bucket.
	dayLayout = "20060102"
)

func roomKey(id string) string { return prefixRoom + id }

func roomNameKey(name string) string { return prefixRoomName + strings.ToLower(name) }

func liveKey(id string) string { return prefixLive + id }

func memberPrefix(roomID string) string { return prefixMember + roomID + "/" }

func memberKey(roomID, memberID string) string { return memberPrefix(roomID) + memberID }

func activityPrefix(roomID string) string { return prefixActivity + roomID + "/" }

func dayBucket(t time.Time) string { return t.UTC().Format(dayLayout) }

func activityDayPrefix(roomID string, t time.Time) string {
	return activityPrefix(roomID) + dayBucket(t) + "/"
}

func activityKey(roomID, memberID string, t time.Time) string {
	return activityDayPrefix(roomID, t) + memberID
}

func burstKey(roomID string) string { return prefixBurst + roomID }

func eventPrefix(roomID string) string { return prefixEvent + roomID + "/" }

func eventKey(roomID string, seq uint64) string {
	return fmt.Sprintf("%s%020d", eventPrefix(roomID), seq)
}

// splitActivityKey returns the day bucket and member of an activity key.
func splitActivityKey(roomID, key string) (day, member string, ok bool) {
	rest := strings.TrimPrefix(key, activityPrefix(roomID))
	day, member, ok = strings.Cut(rest, "/")
	return day, member, ok
}
