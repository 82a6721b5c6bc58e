// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/agora/internal/dispatcher"
	"github.com/tomtom215/agora/internal/models"
)

// EventsResponse is the long-poll result. Cursor is the position the
// client should pass on its next call: the last event id when events
// were delivered, or the unchanged input cursor on timeout.
// ResyncRequired signals that log eviction dropped events the client
// never saw; the client must re-fetch full state before trusting the
// stream again.
type EventsResponse struct {
	Events         []models.Event `json:"events"`
	Cursor         int64          `json:"cursor"`
	ResyncRequired bool           `json:"resync_required"`
}

// Events is the long-poll endpoint.
//
// Method: GET
// Path: /api/v1/events?cursor=N&timeout=S
//
// The request is held open until an event newer than cursor exists or
// the timeout (seconds, capped at the configured maximum) elapses. A
// timeout is a success carrying zero events; clients re-poll with the
// same cursor. Cursor 0 means "from the beginning of retained history".
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	cursor, ok := queryInt64(r, "cursor", 0)
	if !ok {
		rw.BadRequest("cursor must be an integer")
		return
	}
	timeoutSec, ok := queryInt64(r, "timeout", 0)
	if !ok || timeoutSec < 0 {
		rw.BadRequest("timeout must be a non-negative integer (seconds)")
		return
	}
	// Clamp before converting to a Duration: a huge seconds value would
	// overflow the multiplication and dodge the dispatcher's cap.
	if maxSec := int64(h.cfg.Events.MaxWait / time.Second); timeoutSec > maxSec {
		timeoutSec = maxSec
	}

	events, resync, err := h.disp.WaitForEvent(r.Context(), cursor, time.Duration(timeoutSec)*time.Second)
	switch {
	case errors.Is(err, dispatcher.ErrInvalidCursor):
		rw.BadRequest("cursor must be >= 0")
		return
	case err != nil:
		// Context cancellation: the client hung up mid-poll. Nothing
		// useful can be written; chi's recoverer is not needed here.
		return
	}

	next := cursor
	if len(events) > 0 {
		next = events[len(events)-1].ID
	}
	if events == nil {
		events = []models.Event{}
	}
	rw.Success(EventsResponse{
		Events:         events,
		Cursor:         next,
		ResyncRequired: resync,
	})
}
