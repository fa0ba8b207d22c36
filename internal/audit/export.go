// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package audit

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// JSONExporter exports events in JSON format.
type JSONExporter struct{}

// Export exports events to JSON format.
func (e *JSONExporter) Export(events []Event) ([]byte, error) {
	return json.MarshalIndent(events, "", "  ")
}

// CEFExporter exports events in Common Event Format for SIEM ingestion by
// moderation tooling.
type CEFExporter struct {
	DeviceVendor  string
	DeviceProduct string
	DeviceVersion string
}

// NewCEFExporter creates a new CEF exporter with defaults.
func NewCEFExporter() *CEFExporter {
	return &CEFExporter{
		DeviceVendor:  "Agora",
		DeviceProduct: "RoomLifecycleEngine",
		DeviceVersion: "1.0",
	}
}

// Export exports events to CEF format.
// CEF Format: CEF:Version|Device Vendor|Device Product|Device Version|Signature ID|Name|Severity|Extension
func (e *CEFExporter) Export(events []Event) ([]byte, error) {
	lines := make([]string, 0, len(events))

	for idx := range events {
		event := &events[idx]
		lines = append(lines, fmt.Sprintf("CEF:0|%s|%s|%s|%s|%s|%d|%s",
			e.escape(e.DeviceVendor),
			e.escape(e.DeviceProduct),
			e.escape(e.DeviceVersion),
			e.escape(string(event.Type)),
			e.escape(event.Reason),
			e.cefSeverity(event.Severity),
			e.buildExtension(event),
		))
	}

	return []byte(strings.Join(lines, "\n")), nil
}

// cefSeverity maps our severity to CEF severity (0-10).
func (e *CEFExporter) cefSeverity(severity Severity) int {
	switch severity {
	case SeverityInfo:
		return 3
	case SeverityWarning:
		return 5
	case SeverityError:
		return 7
	case SeverityCritical:
		return 10
	default:
		return 0
	}
}

func (e *CEFExporter) buildExtension(event *Event) string {
	parts := []string{
		fmt.Sprintf("rt=%d", event.Timestamp.UnixMilli()),
		fmt.Sprintf("cs1Label=room cs1=%s", e.escape(event.RoomID)),
		fmt.Sprintf("cn1Label=sequence cn1=%d", event.Sequence),
	}

	if event.MemberID != "" {
		parts = append(parts, fmt.Sprintf("duid=%s", e.escape(event.MemberID)))
	}
	if event.Actor.ID != "" {
		parts = append(parts, fmt.Sprintf("suid=%s", e.escape(event.Actor.ID)))
	}
	if event.ToState != "" {
		parts = append(parts, fmt.Sprintf("act=%s", e.escape(event.FromState+"->"+event.ToState)))
	}
	if event.RequestID != "" {
		parts = append(parts, fmt.Sprintf("externalId=%s", e.escape(event.RequestID)))
	}

	return strings.Join(parts, " ")
}

// escape escapes special characters for CEF format.
func (e *CEFExporter) escape(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "=", "\\=")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}
