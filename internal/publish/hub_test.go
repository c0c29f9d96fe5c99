package publish

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"skywatch-sim/internal/detection"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	defer h.Close()

	all := dial(t, srv, "")
	filtered := dial(t, srv, "?airspace=b")
	waitClients(t, h, 2)

	if err := h.For("a").Publish(detection.Event{DetectorID: "r1", TargetID: "d1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := h.For("b").Publish(detection.Event{DetectorID: "r2", TargetID: "d2"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	var msg Message
	all.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := all.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.AirspaceID != "a" || msg.Event.DetectorID != "r1" {
		t.Fatalf("unexpected first message %+v", msg)
	}

	filtered.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := filtered.ReadMessage()
	if err != nil {
		t.Fatalf("read filtered: %v", err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.AirspaceID != "b" || msg.Event.TargetID != "d2" {
		t.Fatalf("filtered client got %+v", msg)
	}
}

func TestHubDisconnect(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv, "")
	waitClients(t, h, 1)
	conn.Close()
	waitClients(t, h, 0)

	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Broadcast("a", detection.Event{}); err != ErrClosed {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestHubDropsWhenClientIsSlow(t *testing.T) {
	h := NewHub(nil)
	c := &client{send: make(chan []byte, 1)}
	h.clients[c] = struct{}{}
	for i := 0; i < 3; i++ {
		if err := h.Broadcast("a", detection.Event{}); err != nil {
			t.Fatalf("broadcast: %v", err)
		}
	}
	if h.Dropped() != 2 {
		t.Fatalf("expected 2 dropped frames, got %d", h.Dropped())
	}
}
