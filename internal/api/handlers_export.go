// Agora - Community Room Lifecycle Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"fmt"
	"net/http"

	"github.com/tomtom215/agora/internal/audit"
	"github.com/tomtom215/agora/internal/engine"
)

// maxExportEvents caps one export.
const maxExportEvents = 10000

// ExportEvents handles GET /rooms/{id}/events/export.
// format is json (default) or cef; the list filters of ListEvents apply,
// limit excepted.
func (h *Handler) ExportEvents(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var exporter interface {
		Export([]audit.Event) ([]byte, error)
	}
	var contentType, ext string
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		exporter, contentType, ext = &audit.JSONExporter{}, "application/json", "json"
	case "cef":
		exporter, contentType, ext = audit.NewCEFExporter(), "text/plain", "cef"
	default:
		rw.BadRequest(fmt.Sprintf("unsupported export format %q (use json or cef)", format))
		return
	}

	query, err := parseListEventsQuery(r)
	if err != nil {
		writeQueryError(rw, err)
		return
	}
	filter := query.Filter()
	filter.Limit = engine.MaxEventLimit

	roomID := roomIDParam(r)
	events := []audit.Event{}
	for len(events) < maxExportEvents {
		page, err := h.engine.ListEventsForRoom(r.Context(), roomID, filter)
		if err != nil {
			writeEngineError(rw, err)
			return
		}
		events = append(events, page...)
		if len(page) < filter.Limit {
			break
		}
		filter.AfterSequence = page[len(page)-1].Sequence
	}
	if len(events) > maxExportEvents {
		events = events[:maxExportEvents]
	}

	data, err := exporter.Export(events)
	if err != nil {
		rw.InternalError(err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="room-%s-events.%s"`, roomID, ext))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
