// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package services provides suture.Service wrappers for Agora components.

Each wrapper translates a component's own lifecycle into suture's
context-aware Serve method:

  - StartStopService: Start(ctx)/Stop() components. NewSchedulerService wraps
    the room and compliance loops; NewDispatcherService wraps the
    notification dispatcher.
  - BadgerGCService: value log GC for the badger store on a ticker.
  - HTTPServerService: ListenAndServe/Shutdown for *http.Server.

Return values follow suture's rules. An error restarts the service under the
supervisor's backoff, nil stops it for good, and ctx.Err() is returned on
shutdown.
*/
package services
