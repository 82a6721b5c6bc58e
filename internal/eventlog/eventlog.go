// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package eventlog implements the append-only, capacity-bounded event
// sequence that backs the live-update dispatcher.
//
// The log is the single source of ordering truth: every event gets a
// strictly increasing ID assigned at append time, and the retained window
// is always sorted ascending by ID. When the log is full the oldest event
// is evicted; eviction never removes from the middle.
//
// The log is not safe for concurrent use on its own. The dispatcher owns
// the only instance and serializes access behind its mutex.
package eventlog

import (
	"time"

	"github.com/tomtom215/agora/internal/logging"
	"github.com/tomtom215/agora/internal/models"
)

// DefaultCapacity is the retained-window size used when no capacity is
// configured. Sized for a busy board: a client more than 512 events behind
// is better served by a full re-fetch than by replay.
const DefaultCapacity = 512

// Log is a bounded, ordered event sequence.
type Log struct {
	capacity int
	events   []models.Event // ascending by ID
	lastID   int64
}

// New creates an empty log with the given capacity.
// A capacity <= 0 falls back to DefaultCapacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		events:   make([]models.Event, 0, capacity),
	}
}

// Append assigns the next ID, appends the event, and evicts the oldest
// entry if the log is over capacity. Eviction does not change LatestID.
//
// A non-monotonic ID at append time means the ordering invariant is
// already broken and the process cannot keep serving correct results;
// this is treated as fatal.
func (l *Log) Append(kind models.EventKind, payload any) models.Event {
	next := l.lastID + 1
	if n := len(l.events); n > 0 && l.events[n-1].ID >= next {
		logging.Fatal().
			Int64("last_id", l.events[n-1].ID).
			Int64("next_id", next).
			Msg("event log corruption: non-monotonic id")
	}

	ev := models.Event{
		ID:         next,
		Kind:       kind,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	l.events = append(l.events, ev)
	l.lastID = next

	if len(l.events) > l.capacity {
		// Shift rather than reslice so the backing array does not pin
		// evicted payloads for the lifetime of the log.
		copy(l.events, l.events[1:])
		l.events = l.events[:l.capacity]
	}
	return ev
}

// EventsSince returns every retained event with ID > cursor, oldest
// first. The second return value reports whether eviction has removed
// events the cursor had not yet seen; callers should treat that as a
// "resync required" signal and fall back to a full state re-fetch if
// completeness matters to them.
func (l *Log) EventsSince(cursor int64) ([]models.Event, bool) {
	if len(l.events) == 0 {
		// An empty log can still imply a gap: events may have been
		// appended and evicted since the cursor was taken.
		return nil, cursor < l.lastID
	}

	oldest := l.events[0].ID
	resync := cursor < oldest-1

	// Binary search would work, but the window is small and the scan is
	// already linear in the result size.
	start := len(l.events)
	for i, ev := range l.events {
		if ev.ID > cursor {
			start = i
			break
		}
	}
	if start == len(l.events) {
		return nil, resync
	}

	out := make([]models.Event, len(l.events)-start)
	copy(out, l.events[start:])
	return out, resync
}

// LatestID returns the high-water mark: the ID of the most recently
// appended event, or 0 if nothing has ever been appended. Eviction does
// not lower it.
func (l *Log) LatestID() int64 {
	return l.lastID
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	return len(l.events)
}
