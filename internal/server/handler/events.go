package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fracvault/internal/domain"
)

// EventArchiver exports journal entries older than a cutoff to object storage.
type EventArchiver interface {
	ArchiveEvents(ctx context.Context, before time.Time) (int64, error)
}

// EventHandler serves the event journal endpoints: listing and archival.
type EventHandler struct {
	store    domain.EventStore
	archiver EventArchiver // nil when object storage is not configured
	logger   *slog.Logger
}

// NewEventHandler creates an EventHandler.
func NewEventHandler(store domain.EventStore, archiver EventArchiver, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		store:    store,
		archiver: archiver,
		logger:   logHandler(logger, "events"),
	}
}

// ListEvents returns journal entries, newest first. Supports limit, offset,
// type, since, and until query parameters.
// GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	opts.Type = r.URL.Query().Get("type")

	since, err := parseTimeParam(r, "since")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	until, err := parseTimeParam(r, "until")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	opts.Since = since
	opts.Until = until

	events, err := h.store.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list events failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		out = append(out, map[string]any{
			"id":         ev.ID,
			"type":       ev.Type,
			"detail":     ev.Detail,
			"created_at": ev.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": out,
		"count":  len(out),
	})
}

type archiveRequest struct {
	Before string `json:"before"`
}

// Archive exports journal entries older than the cutoff to object storage as
// JSONL. The cutoff defaults to the start of the current month.
// POST /api/journal/archive
func (h *EventHandler) Archive(w http.ResponseWriter, r *http.Request) {
	if h.archiver == nil {
		writeError(w, http.StatusNotImplemented, "object storage not configured")
		return
	}

	// An empty body means "use the default cutoff".
	var req archiveRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	before := monthStart(time.Now().UTC())
	if req.Before != "" {
		t, err := time.Parse(time.RFC3339, req.Before)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid before timestamp")
			return
		}
		before = t
	}

	archived, err := h.archiver.ArchiveEvents(r.Context(), before)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "archive events failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "archive upload failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"archived": archived,
		"before":   before.Format(time.RFC3339),
	})
}

// monthStart truncates a time to the first instant of its month.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
