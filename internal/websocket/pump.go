// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/agora/internal/dispatcher"
	"github.com/tomtom215/agora/internal/logging"
)

// Pump is the bridge between the dispatcher and the hub: it long-polls
// the dispatcher with its own cursor and broadcasts every batch it
// receives. Timeouts simply re-poll; a resync signal (the pump fell
// behind the retained window) resets the cursor to the head, since
// connected clients get a live feed, not history replay.
type Pump struct {
	disp *dispatcher.Dispatcher
	hub  *Hub
	wait time.Duration
}

// NewPump creates the event pump.
func NewPump(disp *dispatcher.Dispatcher, hub *Hub, wait time.Duration) *Pump {
	if wait <= 0 {
		wait = 25 * time.Second
	}
	return &Pump{disp: disp, hub: hub, wait: wait}
}

// Serve runs the pump loop until ctx is canceled. Suture-compatible.
func (p *Pump) Serve(ctx context.Context) error {
	cursor := p.disp.LatestID()
	for {
		events, resync, err := p.disp.WaitForEvent(ctx, cursor, p.wait)
		if err != nil {
			if errors.Is(err, ctx.Err()) {
				logging.Info().Str("component", "websocket-pump").Msg("event pump stopped")
				return ctx.Err()
			}
			// Only ErrInvalidCursor remains, which would be a bug here.
			return err
		}
		if resync {
			cursor = p.disp.LatestID()
			continue
		}
		if len(events) == 0 {
			continue
		}
		p.hub.BroadcastEvents(events)
		cursor = events[len(events)-1].ID
	}
}
