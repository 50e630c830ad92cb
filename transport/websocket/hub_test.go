package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestClient(hub *Hub, id string) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		send: make(chan []byte, sendBufferSize),
	}
}

func startHubServer(t *testing.T, hub *Hub, initial func() []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, initial)
	}))
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestNewHub(t *testing.T) {
	hub := NewHub(nil)

	if hub == nil {
		t.Fatal("NewHub() returned nil")
	}

	if hub.clients == nil {
		t.Error("Hub clients map is nil")
	}

	if hub.broadcast == nil {
		t.Error("Hub broadcast channel is nil")
	}

	if hub.register == nil || hub.unregister == nil {
		t.Error("Hub register/unregister channels are nil")
	}
}

func TestHubRegisterUnregisterClient(t *testing.T) {
	hub := NewHub(nil)
	client := newTestClient(hub, "c1")

	hub.registerClient(client)
	if hub.ClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.ClientCount())
	}

	hub.unregisterClient(client)
	if hub.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.ClientCount())
	}

	if _, ok := <-client.send; ok {
		t.Error("Send channel should be closed after unregister")
	}

	// Second unregister must not panic on a closed channel.
	hub.unregisterClient(client)
}

func TestHubRegisterSendsInitialBeforeBroadcasts(t *testing.T) {
	hub := NewHub(nil)
	calls := 0
	client := newTestClient(hub, "c1")
	client.initial = func() []byte {
		calls++
		if hub.ClientCount() != 0 {
			t.Error("Initial payload should be taken before the client is registered")
		}
		return []byte(`{"orders":1}`)
	}

	hub.registerClient(client)
	hub.broadcastPayload([]byte(`{"orders":2}`))

	if calls != 1 {
		t.Errorf("Expected initial to be called once, got %d", calls)
	}
	for _, expected := range []string{`{"orders":1}`, `{"orders":2}`} {
		if got := string(<-client.send); got != expected {
			t.Errorf("Expected %s, got %s", expected, got)
		}
	}

	empty := newTestClient(hub, "c2")
	empty.initial = func() []byte { return nil }
	hub.registerClient(empty)
	if len(empty.send) != 0 {
		t.Error("Empty initial payload should not be sent")
	}
}

func TestHubBroadcastPayload(t *testing.T) {
	hub := NewHub(nil)
	client1 := newTestClient(hub, "c1")
	client2 := newTestClient(hub, "c2")
	hub.registerClient(client1)
	hub.registerClient(client2)

	hub.broadcastPayload([]byte(`{"orders":1}`))

	for _, c := range []*Client{client1, client2} {
		select {
		case data := <-c.send:
			if string(data) != `{"orders":1}` {
				t.Errorf("Client %s got %s", c.id, data)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("Client %s received nothing", c.id)
		}
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub(nil)
	slow := &Client{id: "slow", hub: hub, send: make(chan []byte)}
	hub.registerClient(slow)

	hub.broadcastPayload([]byte(`{}`))

	if hub.ClientCount() != 0 {
		t.Errorf("Slow client should have been dropped, %d clients remain", hub.ClientCount())
	}
}

func TestHubStopClosesClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	server := startHubServer(t, hub, nil)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Stop()
	hub.Stop()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("Expected normal close after Stop, got %v", err)
	}

	// Publish after Stop must not block.
	done := make(chan struct{})
	go func() {
		hub.Publish([]byte(`{}`))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Publish blocked after Stop")
	}
}

func TestWebSocketUpgradeAndCleanup(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := startHubServer(t, hub, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestWebSocketInitialAndPublishedFrames(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Stop()

	server := startHubServer(t, hub, func() []byte { return []byte(`{"orders":0}`) })

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server), nil)
	if err != nil {
		t.Fatalf("Failed to connect to WebSocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read initial frame: %v", err)
	}
	if string(data) != `{"orders":0}` {
		t.Errorf("Expected initial snapshot, got %s", data)
	}

	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Publish([]byte(`{"orders":1}`))
	hub.Publish([]byte(`{"orders":2}`))

	// Each payload arrives as its own frame.
	for _, expected := range []string{`{"orders":1}`, `{"orders":2}`} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed to read frame: %v", err)
		}
		if string(data) != expected {
			t.Errorf("Expected %s, got %s", expected, data)
		}
	}
}
