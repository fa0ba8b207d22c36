// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandler_Enabled(t *testing.T) {
	handler := NewSlogHandlerWithLogger(zerolog.New(nil).Level(zerolog.WarnLevel))

	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestSlogHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))
	slogger := slog.New(handler)

	slogger.Info("service restarted", "service", "room-scheduler", "attempt", 2, "backoff", time.Second)

	out := buf.String()
	for _, want := range []string{`"service":"room-scheduler"`, `"attempt":2`, `"message":"service restarted"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestSlogHandler_GroupsPrefixOuterFirst(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))
	slogger := slog.New(handler.WithGroup("outer").WithGroup("inner"))

	slogger.Info("test", "key", "value")

	if !strings.Contains(buf.String(), "outer.inner.key") {
		t.Errorf("nested group prefix missing: %s", buf.String())
	}
}

func TestSlogHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	handler := NewSlogHandlerWithLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))
	slogger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("supervisor", "agora")}))

	slogger.Warn("backoff")

	if !strings.Contains(buf.String(), `"supervisor":"agora"`) {
		t.Errorf("pre-configured attr missing: %s", buf.String())
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewSlogLogger_TagsSupervisorComponent(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))

	NewSlogLogger().Warn("service failed", "service", "badger-gc")

	out := buf.String()
	for _, want := range []string{`"component":"supervisor"`, `"service":"badger-gc"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
