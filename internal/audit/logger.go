// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package audit

import (
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/agora/internal/logging"
)

// Config holds configuration for the audit mirror.
type Config struct {
	// Enabled controls whether committed events are mirrored to the log stream.
	Enabled bool `koanf:"enabled"`

	// LogLevel filters mirrored events by minimum severity.
	LogLevel Severity `koanf:"log_level" validate:"oneof=debug info warning error critical"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `koanf:"buffer_size" validate:"min=1"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		LogLevel:   SeverityInfo,
		BufferSize: 1000,
	}
}

// Logger mirrors committed lifecycle events into the structured log so log
// pipelines see them without polling the event store. The event store stays
// the source of truth; the mirror is best effort and drops when its buffer
// is full.
type Logger struct {
	config    Config
	logger    zerolog.Logger
	eventChan chan Event
	stopOnce  sync.Once
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a mirror and starts its async writer.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLogger(config Config, logger zerolog.Logger) *Logger {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.LogLevel == "" {
		config.LogLevel = SeverityInfo
	}

	l := &Logger{
		config:    config,
		logger:    logger.With().Str("component", "audit").Logger(),
		eventChan: make(chan Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

// asyncWriter processes events from the buffer.
func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.write(&event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.write(&event)
		}
	}
}

func (l *Logger) write(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to marshal audit event")
		return
	}
	l.logger.Info().RawJSON("event", data).Str("type", string(event.Type)).Msg("Audit event")
}

// Log mirrors committed events. It never blocks.
func (l *Logger) Log(events ...Event) {
	if !l.config.Enabled {
		return
	}

	for i := range events {
		if !l.shouldLog(events[i].Severity) {
			continue
		}
		select {
		case l.eventChan <- events[i]:
		default:
			logging.Warn().Str("event_id", events[i].ID).Msg("Audit mirror buffer full, dropping event")
		}
	}
}

var severityOrder = map[Severity]int{
	SeverityDebug:    0,
	SeverityInfo:     1,
	SeverityWarning:  2,
	SeverityError:    3,
	SeverityCritical: 4,
}

// shouldLog returns true if the event severity meets the minimum level.
func (l *Logger) shouldLog(severity Severity) bool {
	return severityOrder[severity] >= severityOrder[l.config.LogLevel]
}

// Close drains buffered events and stops the writer.
func (l *Logger) Close() error {
	l.stopOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}
