// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package eventlog

import (
	"testing"

	"github.com/tomtom215/agora/internal/models"
)

func TestAppendAssignsSequentialIDs(t *testing.T) {
	l := New(8)

	for want := int64(1); want <= 5; want++ {
		ev := l.Append(models.EventPostCreated, nil)
		if ev.ID != want {
			t.Errorf("Append assigned ID %d, want %d", ev.ID, want)
		}
	}
	if l.LatestID() != 5 {
		t.Errorf("LatestID() = %d, want 5", l.LatestID())
	}
	if l.Len() != 5 {
		t.Errorf("Len() = %d, want 5", l.Len())
	}
}

func TestCapacityEviction(t *testing.T) {
	const capacity = 4
	l := New(capacity)

	// One past capacity: the oldest event must go.
	for i := 0; i < capacity+1; i++ {
		l.Append(models.EventPostCreated, nil)
	}

	if l.Len() != capacity {
		t.Fatalf("Len() = %d after overflow, want %d", l.Len(), capacity)
	}

	events, _ := l.EventsSince(0)
	if events[0].ID != 2 {
		t.Errorf("oldest retained ID = %d, want 2", events[0].ID)
	}
	if l.LatestID() != capacity+1 {
		t.Errorf("LatestID() = %d, want %d (eviction must not lower it)", l.LatestID(), capacity+1)
	}
}

func TestEventsSinceReturnsExactSuffix(t *testing.T) {
	l := New(16)
	for i := 0; i < 6; i++ {
		l.Append(models.EventPostCreated, nil)
	}

	events, resync := l.EventsSince(3)
	if resync {
		t.Error("unexpected resync for a cursor inside the window")
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, ev := range events {
		if want := int64(4 + i); ev.ID != want {
			t.Errorf("events[%d].ID = %d, want %d", i, ev.ID, want)
		}
	}
}

func TestEventsSinceAtHead(t *testing.T) {
	l := New(16)
	for i := 0; i < 3; i++ {
		l.Append(models.EventPostCreated, nil)
	}

	events, resync := l.EventsSince(3)
	if len(events) != 0 {
		t.Errorf("got %d events at head, want 0", len(events))
	}
	if resync {
		t.Error("unexpected resync at head")
	}
}

func TestEventsSinceSignalsResyncAfterEviction(t *testing.T) {
	l := New(2)
	for i := 0; i < 5; i++ {
		l.Append(models.EventPostCreated, nil)
	}
	// Retained window is now [4, 5].

	events, resync := l.EventsSince(1)
	if !resync {
		t.Error("expected resync: events 2 and 3 were evicted unseen")
	}
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}

	// Cursor exactly one before the oldest retained event has missed
	// nothing.
	_, resync = l.EventsSince(3)
	if resync {
		t.Error("unexpected resync: cursor 3 saw everything before the window")
	}
}

func TestEventsSinceEmptyLog(t *testing.T) {
	l := New(4)

	events, resync := l.EventsSince(0)
	if len(events) != 0 || resync {
		t.Errorf("EventsSince(0) on empty log = (%d events, resync=%v), want (0, false)", len(events), resync)
	}
}

func TestDefaultCapacity(t *testing.T) {
	l := New(0)
	for i := 0; i < DefaultCapacity+10; i++ {
		l.Append(models.EventPostCreated, nil)
	}
	if l.Len() != DefaultCapacity {
		t.Errorf("Len() = %d, want %d", l.Len(), DefaultCapacity)
	}
}

func TestAppendPreservesPayload(t *testing.T) {
	l := New(4)
	sum := models.PostSummary{PostID: 7, ThreadID: 7, Author: "ada"}

	l.Append(models.EventPostCreated, sum)

	events, _ := l.EventsSince(0)
	got, ok := events[0].Payload.(models.PostSummary)
	if !ok {
		t.Fatalf("payload has type %T, want models.PostSummary", events[0].Payload)
	}
	if got.PostID != 7 || got.Author != "ada" {
		t.Errorf("payload = %+v, want %+v", got, sum)
	}
}
