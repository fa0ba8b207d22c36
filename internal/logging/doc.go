// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package logging provides centralized zerolog-based structured logging for Agora.
//
// The package provides:
//   - A global zerolog logger configured once from main via Init
//   - JSON output for production, console output for development
//   - Context-aware logging with request and correlation ID propagation
//   - An slog handler so the suture supervisor logs through zerolog
//   - A watermill.LoggerAdapter for the notification publisher
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Msg("Server starting")
//	logging.Error().Err(err).Str("room_id", roomID).Msg("Evaluation failed")
//	logging.Ctx(ctx).Info().Msg("Room created")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated event
// is never written.
package logging
