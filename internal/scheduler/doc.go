// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package scheduler runs the periodic lifecycle passes.

The room pass pages through every non-deleted room and re-evaluates it, so
time-driven transitions (the 72-hour poster window, pending expiry) happen
even when no member acts. The compliance pass recomputes the posting and
viewing cadence flags of members of Active and Locked rooms.

Rooms are evaluated in parallel up to Config.Concurrency. Each room gets its
own Config.EvaluationBudget; a room that fails or overruns is logged, counted
in agora_scheduler_rooms_skipped_total and retried by the next pass. Passes
are idempotent, so an interrupted pass is simply run again.

Both passes are exposed as Loops with the Start/Stop lifecycle wrapped by
the supervisor services package:

	sched := scheduler.New(eng, cfg.Scheduler)
	tree.AddLifecycleService(services.NewSchedulerService(sched.RoomLoop()))
	tree.AddLifecycleService(services.NewSchedulerService(sched.ComplianceLoop()))
*/
package scheduler
