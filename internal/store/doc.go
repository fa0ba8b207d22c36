// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package store persists rooms, memberships, activity buckets and lifecycle
// events behind a transactional key-value layout.
//
// Two backends share the same layout:
//   - BadgerStore: durable BadgerDB storage with optimistic transactions.
//     Conflicting transactions are retried a bounded number of times.
//   - MemoryStore: in-process storage for tests and single-node development.
//
// # Key Layout
//
//	room/<room_id>                          -> models.Room (JSON)
//	roomname/<lower(name)>                  -> room_id (non-deleted rooms only)
//	live/<room_id>                          -> empty (non-deleted rooms only)
//	member/<room_id>/<member_id>            -> models.Membership (JSON)
//	activity/<room_id>/<yyyymmdd>/<member>  -> last post in that day (unix nanos)
//	burst/<room_id>                         -> recent post timestamps (JSON)
//	event/<room_id>/<sequence>              -> audit.Event (JSON), zero-padded sequence
//
// All writes for one transition happen inside a single Update call, so a
// room's counters, state, memberships and events commit together or not at all.
//
// # Usage
//
//	st, err := store.OpenBadger(store.DefaultBadgerConfig())
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	err = st.Update(ctx, func(tx store.Tx) error {
//	    room, err := tx.GetRoom(id)
//	    if err != nil {
//	        return err
//	    }
//	    room.Description = "updated"
//	    return tx.PutRoom(room)
//	})
package store
