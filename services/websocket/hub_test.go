package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(h *Hub, userID uint, buffer int) *Client {
	return &Client{
		hub:    h,
		send:   make(chan []byte, buffer),
		userID: userID,
	}
}

func waitForCount(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if h.GetClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d clients, got %d", want, h.GetClientCount())
}

func TestHubRegisterUnregister(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient(h, 1, 1)
	h.register <- c
	waitForCount(t, h, 1)

	h.unregister <- c
	waitForCount(t, h, 0)

	// send channel is closed on unregister
	select {
	case _, ok := <-c.send:
		if ok {
			t.Fatal("expected closed send channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}

func TestBroadcastToUserTargetsOnlyThatUser(t *testing.T) {
	h := NewHub()
	go h.Run()

	alice := newTestClient(h, 1, 4)
	aliceSecond := newTestClient(h, 1, 4)
	bob := newTestClient(h, 2, 4)
	for _, c := range []*Client{alice, aliceSecond, bob} {
		h.register <- c
	}
	waitForCount(t, h, 3)

	h.BroadcastToUser(1, Message{Type: "notification", Data: "hello"})

	for _, c := range []*Client{alice, aliceSecond} {
		select {
		case raw := <-c.send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			if msg.Type != "notification" {
				t.Fatalf("expected notification type, got %q", msg.Type)
			}
		default:
			t.Fatal("expected a message for user 1")
		}
	}

	select {
	case <-bob.send:
		t.Fatal("user 2 should not receive user 1 messages")
	default:
	}
}

func TestBroadcastToUserDropsSlowConsumer(t *testing.T) {
	h := NewHub()
	go h.Run()

	// buffer of 1: second send has nowhere to go
	slow := newTestClient(h, 5, 1)
	h.register <- slow
	waitForCount(t, h, 1)

	h.BroadcastToUser(5, Message{Type: "notification", Data: "first"})
	h.BroadcastToUser(5, Message{Type: "notification", Data: "second"})

	if got := h.GetClientCount(); got != 0 {
		t.Fatalf("expected slow consumer dropped, still %d clients", got)
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := NewHub()
	go h.Run()

	a := newTestClient(h, 1, 4)
	b := newTestClient(h, 2, 4)
	h.register <- a
	h.register <- b
	waitForCount(t, h, 2)

	h.Broadcast(Message{Type: "announcement", Data: "school closed"})

	for _, c := range []*Client{a, b} {
		select {
		case raw := <-c.send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("bad payload: %v", err)
			}
			if msg.Type != "announcement" {
				t.Fatalf("expected announcement, got %q", msg.Type)
			}
		case <-time.After(time.Second):
			t.Fatalf("client for user %d never received broadcast", c.userID)
		}
	}
}
