// Agora - Threaded Discussion Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agora

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"

	"github.com/tomtom215/agora/internal/dispatcher"
	"github.com/tomtom215/agora/internal/models"
)

// startHub runs a hub under a cancelable context and returns a dial-able
// test server serving the upgrade endpoint.
func startHub(t *testing.T) (*Hub, string) {
	t.Helper()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Serve(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(hub, w, r)
	}))
	t.Cleanup(srv.Close)

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *gws.Conn {
	t.Helper()
	conn, _, err := gws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// waitForPump blocks until the pump has registered its first long-poll
// waiter with the dispatcher, which guarantees its starting cursor has
// been captured and subsequent publishes are live events, not history.
func waitForPump(t *testing.T, disp *dispatcher.Dispatcher) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for disp.WaiterCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("pump never registered with dispatcher")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubDeliversEventFrames(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	hub.BroadcastEvents([]models.Event{
		{ID: 1, Kind: models.EventPostCreated, OccurredAt: time.Now().UTC()},
		{ID: 2, Kind: models.EventPostNuked, OccurredAt: time.Now().UTC()},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first, second Message
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("read second frame: %v", err)
	}
	if first.Type != string(models.EventPostCreated) {
		t.Errorf("first frame type = %q, want %q", first.Type, models.EventPostCreated)
	}
	if second.Type != string(models.EventPostNuked) {
		t.Errorf("second frame type = %q, want %q", second.Type, models.EventPostNuked)
	}
}

func TestHubFansOutToAllClients(t *testing.T) {
	hub, url := startHub(t)
	connA := dial(t, url)
	connB := dial(t, url)
	waitForClients(t, hub, 2)

	hub.BroadcastEvents([]models.Event{{ID: 1, Kind: models.EventPostCreated}})

	for name, conn := range map[string]*gws.Conn{"A": connA, "B": connB} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("client %s read: %v", name, err)
		}
		if msg.Type != string(models.EventPostCreated) {
			t.Errorf("client %s frame type = %q", name, msg.Type)
		}
	}
}

func TestHubRemovesDisconnectedClient(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHubPingPong(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if msg.Type != MessageTypePong {
		t.Errorf("frame type = %q, want %q", msg.Type, MessageTypePong)
	}
}

func TestPumpBridgesDispatcherToHub(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	disp := dispatcher.New(dispatcher.Config{
		Capacity:    16,
		DefaultWait: 100 * time.Millisecond,
		MaxWait:     time.Second,
	})
	pump := NewPump(disp, hub, 200*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})
	go func() {
		_ = pump.Serve(ctx)
		close(pumpDone)
	}()
	t.Cleanup(func() {
		cancel()
		<-pumpDone
	})

	waitForPump(t, disp)
	disp.Publish(models.EventPostCreated, models.PostSummary{PostID: 1})

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read pumped frame: %v", err)
	}
	if msg.Type != string(models.EventPostCreated) {
		t.Errorf("frame type = %q, want %q", msg.Type, models.EventPostCreated)
	}
}

func TestPumpStartsAtHead(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	waitForClients(t, hub, 1)

	disp := dispatcher.New(dispatcher.Config{
		Capacity:    16,
		DefaultWait: 100 * time.Millisecond,
		MaxWait:     time.Second,
	})
	// Events published before the pump starts are history, not pushed.
	disp.Publish(models.EventPostCreated, nil)
	disp.Publish(models.EventPostCreated, nil)

	pump := NewPump(disp, hub, 200*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})
	go func() {
		_ = pump.Serve(ctx)
		close(pumpDone)
	}()
	t.Cleanup(func() {
		cancel()
		<-pumpDone
	})

	waitForPump(t, disp)
	disp.Publish(models.EventPostNuked, nil)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if msg.Type != string(models.EventPostNuked) {
		t.Errorf("first pushed frame = %q, want %q (history must not replay)", msg.Type, models.EventPostNuked)
	}
}
