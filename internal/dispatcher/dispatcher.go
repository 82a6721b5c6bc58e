// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

// Package dispatcher implements the live-update core: a single event log
// shared by producers (the write path) and any number of long-polling
// consumers, each positioned in the stream by a cursor.
//
// Correctness hinges on one invariant: "check history, else register a
// waiter" happens atomically with respect to Publish. Both paths run
// under the same mutex, so an event appended between a client's history
// check and its registration is impossible - the append either lands
// before the check (and is returned immediately) or after the
// registration (and resolves the waiter). This is the lost-wakeup
// prevention the whole design rests on; do not split the lock.
//
// The dispatcher is an explicitly constructed service object. The server
// wires exactly one instance at startup; tests create as many independent
// instances as they like.
package dispatcher

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/agora/internal/eventlog"
	"github.com/tomtom215/agora/internal/metrics"
	"github.com/tomtom215/agora/internal/models"
)

// ErrInvalidCursor indicates a caller passed a negative cursor.
// This is a contract violation, rejected before any waiter is registered.
var ErrInvalidCursor = errors.New("cursor must be >= 0")

// Wait outcomes recorded in metrics.
const (
	outcomeImmediate = "immediate"
	outcomeEvents    = "events"
	outcomeTimeout   = "timeout"
	outcomeCanceled  = "canceled"
)

// Config holds dispatcher tuning knobs.
type Config struct {
	// Capacity is the event log retention window.
	// Default: eventlog.DefaultCapacity.
	Capacity int

	// DefaultWait is the long-poll timeout applied when the caller does
	// not specify one. Default: 25s (below common proxy idle timeouts).
	DefaultWait time.Duration

	// MaxWait caps caller-supplied timeouts. Default: 60s.
	MaxWait time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Capacity:    eventlog.DefaultCapacity,
		DefaultWait: 25 * time.Second,
		MaxWait:     60 * time.Second,
	}
}

// Result is what a resolved wait carries: the events newer than the
// caller's cursor and whether eviction opened a gap the caller never saw
// (resync required).
type Result struct {
	Events []models.Event
	Resync bool
}

// waiter is one pending long-poll registration. It is created under the
// dispatcher mutex, resolved at most once (resolution deletes it from the
// registry before sending), and never outlives its request.
type waiter struct {
	cursor       int64
	ch           chan Result // buffered; the resolver never blocks
	registeredAt time.Time
}

// Dispatcher coordinates the event log and the waiter registry.
// All methods are safe for concurrent use.
type Dispatcher struct {
	cfg Config

	mu      sync.Mutex
	log     *eventlog.Log
	waiters map[uint64]*waiter
	nextID  uint64
}

// New creates a dispatcher with the given configuration.
func New(cfg Config) *Dispatcher {
	if cfg.DefaultWait <= 0 {
		cfg.DefaultWait = 25 * time.Second
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = 60 * time.Second
	}
	return &Dispatcher{
		cfg:     cfg,
		log:     eventlog.New(cfg.Capacity),
		waiters: make(map[uint64]*waiter),
	}
}

// Publish appends an event to the log and wakes every waiter positioned
// behind the new head. Each waiter receives its own EventsSince slice, so
// waiters at different cursors see different batches. Append and the
// registry scan happen under one critical section: no waiter can register
// between them and be missed.
func (d *Dispatcher) Publish(kind models.EventKind, payload any) models.Event {
	d.mu.Lock()
	ev := d.log.Append(kind, payload)
	latest := d.log.LatestID()

	for id, w := range d.waiters {
		if w.cursor >= latest {
			continue
		}
		events, resync := d.log.EventsSince(w.cursor)
		delete(d.waiters, id)
		// Buffered channel and single-resolution (delete-before-send)
		// guarantee this never blocks.
		w.ch <- Result{Events: events, Resync: resync}
	}
	remaining := len(d.waiters)
	d.mu.Unlock()

	metrics.EventsPublished.WithLabelValues(string(kind)).Inc()
	metrics.DispatcherWaiters.Set(float64(remaining))
	return ev
}

// WaitForEvent returns every event newer than cursor, blocking until at
// least one exists or the timeout elapses. A timeout is not an error: it
// resolves with an empty slice and the caller re-polls with the same
// cursor. The resync flag tells the caller that eviction has dropped
// events it never saw and a full re-fetch is required for completeness.
//
// A timeout <= 0 selects the configured default; larger values are capped
// at the configured maximum. Context cancellation removes the waiter
// promptly and returns ctx.Err().
func (d *Dispatcher) WaitForEvent(ctx context.Context, cursor int64, timeout time.Duration) ([]models.Event, bool, error) {
	if cursor < 0 {
		return nil, false, ErrInvalidCursor
	}
	if timeout <= 0 {
		timeout = d.cfg.DefaultWait
	}
	if timeout > d.cfg.MaxWait {
		timeout = d.cfg.MaxWait
	}

	d.mu.Lock()
	events, resync := d.log.EventsSince(cursor)
	if len(events) > 0 || resync {
		d.mu.Unlock()
		metrics.LongPollResolutions.WithLabelValues(outcomeImmediate).Inc()
		return events, resync, nil
	}

	// Nothing new: register while still holding the lock, so a Publish
	// cannot slip between the history check and the registration.
	id := d.nextID
	d.nextID++
	w := &waiter{
		cursor:       cursor,
		ch:           make(chan Result, 1),
		registeredAt: time.Now(),
	}
	d.waiters[id] = w
	waiting := len(d.waiters)
	d.mu.Unlock()

	metrics.DispatcherWaiters.Set(float64(waiting))

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-w.ch:
		metrics.LongPollResolutions.WithLabelValues(outcomeEvents).Inc()
		metrics.LongPollWaitDuration.Observe(time.Since(w.registeredAt).Seconds())
		return res.Events, res.Resync, nil

	case <-timer.C:
		d.unregister(id)
		// A Publish may have resolved the waiter after the timer fired
		// but before unregistration; the buffered send is already in
		// the channel and must not be dropped.
		select {
		case res := <-w.ch:
			metrics.LongPollResolutions.WithLabelValues(outcomeEvents).Inc()
			return res.Events, res.Resync, nil
		default:
		}
		metrics.LongPollResolutions.WithLabelValues(outcomeTimeout).Inc()
		metrics.LongPollWaitDuration.Observe(time.Since(w.registeredAt).Seconds())
		return nil, false, nil

	case <-ctx.Done():
		// Client connection abandoned: best-effort cleanup so the
		// registry does not accumulate dead waiters.
		d.unregister(id)
		metrics.LongPollResolutions.WithLabelValues(outcomeCanceled).Inc()
		return nil, false, ctx.Err()
	}
}

// EventsSince returns retained events newer than cursor without blocking.
func (d *Dispatcher) EventsSince(cursor int64) ([]models.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.log.EventsSince(cursor)
}

// LatestID returns the event log high-water mark.
func (d *Dispatcher) LatestID() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.log.LatestID()
}

// WaiterCount returns the number of currently registered waiters.
func (d *Dispatcher) WaiterCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.waiters)
}

func (d *Dispatcher) unregister(id uint64) {
	d.mu.Lock()
	delete(d.waiters, id)
	remaining := len(d.waiters)
	d.mu.Unlock()
	metrics.DispatcherWaiters.Set(float64(remaining))
}
