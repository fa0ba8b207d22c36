// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

/*
Package supervisor provides process supervision for Agora using suture v4.

Every long-running component of the server runs as a suture.Service under a
three-layer tree:

	RootSupervisor ("agora")
	├── StorageSupervisor ("storage-layer")
	│   └── BadgerGCService (badger backend only)
	├── LifecycleSupervisor ("lifecycle-layer")
	│   ├── SchedulerService ("rooms-scheduler")
	│   ├── SchedulerService ("compliance-scheduler")
	│   └── DispatcherService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Each layer counts failures independently, so a scheduler that keeps crashing
backs off inside the lifecycle layer while the HTTP server keeps serving.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddLifecycleService(services.NewSchedulerService(scheduler.RoomLoop(sched, cfg.Scheduler)))
	tree.AddAPIService(services.NewHTTPServerService(srv, cfg.Server.ShutdownTimeout))

	errCh := tree.ServeBackground(ctx)

# Failure Handling

Failures decay exponentially (FailureDecay seconds). Once the counter passes
FailureThreshold the supervisor waits FailureBackoff before the next restart.
A service that returns nil is not restarted.

# Shutdown

Canceling the context passed to Serve stops every layer. Services that do not
return within ShutdownTimeout show up in UnstoppedServiceReport.

Supervisor events are logged through sutureslog, which writes to zerolog via
logging.NewSlogLogger.
*/
package supervisor
