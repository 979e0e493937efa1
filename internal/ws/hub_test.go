package ws

import (
	"encoding/json"
	"testing"
	"time"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, screen string) *Client {
	return &Client{
		hub:    hub,
		screen: screen,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, ScreenCooking)

	// Register client
	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[ScreenCooking] == nil {
		t.Fatal("cooking room not created")
	}
	if !hub.rooms[ScreenCooking][client] {
		t.Fatal("client not registered in cooking room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := mockClient(hub, ScreenCooking)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[ScreenCooking] != nil {
		t.Fatal("empty room should be cleaned up")
	}
}

func TestHubBroadcastReachesOnlyItsScreen(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	cooking := mockClient(hub, ScreenCooking)
	completed := mockClient(hub, ScreenCompleted)
	hub.register <- cooking
	hub.register <- completed
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToScreen(ScreenCooking, Event{
		Type:    "pending_snapshot",
		Payload: json.RawMessage(`[]`),
	})

	select {
	case msg := <-cooking.send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if event.Type != "pending_snapshot" {
			t.Errorf("Type = %q", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("cooking client did not receive broadcast")
	}

	select {
	case <-completed.send:
		t.Fatal("completed client received a cooking broadcast")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestHubReplaysLastEventToLateJoiner(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	hub.BroadcastToScreen(ScreenCompleted, Event{
		Type:    "completed_snapshot",
		Payload: json.RawMessage(`[{"order_no":1}]`),
	})
	time.Sleep(10 * time.Millisecond)

	late := mockClient(hub, ScreenCompleted)
	hub.register <- late

	select {
	case msg := <-late.send:
		var event Event
		if err := json.Unmarshal(msg, &event); err != nil {
			t.Fatalf("unmarshal replay: %v", err)
		}
		if event.Type != "completed_snapshot" {
			t.Errorf("Type = %q", event.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("late joiner did not receive the cached snapshot")
	}
}

func TestIsScreen(t *testing.T) {
	if !IsScreen(ScreenCooking) || !IsScreen(ScreenCompleted) {
		t.Error("known screens rejected")
	}
	if IsScreen("admin") {
		t.Error("unknown screen accepted")
	}
}
