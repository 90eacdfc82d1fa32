package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:          url,
		PingTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   100,
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		// Just keep the connection open
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cl := NewClient(testClientConfig(wsURL(server)), nil)

	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !cl.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := cl.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if cl.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}
}

func TestClient_Send(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	cl := NewClient(testClientConfig(wsURL(server)), nil)
	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cl.Close()

	cmd, err := subscribeCommand(1, []string{"AAPL"})
	if err != nil {
		t.Fatalf("subscribeCommand error: %v", err)
	}
	if err := cl.Send(cmd); err != nil {
		t.Errorf("Send failed: %v", err)
	}

	// Wait for the frame to land on the server
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := received
		mu.Unlock()
		if got != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if string(received) != string(cmd) {
		t.Errorf("received %q, want %q", received, cmd)
	}
}

func TestClient_Messages(t *testing.T) {
	testFrames := []string{
		`{"type":"order","msg":{"order_id":1}}`,
		`{"type":"order","msg":{"order_id":2}}`,
		`{"type":"heartbeat","msg":{}}`,
	}

	server := mockWSServer(t, func(conn *websocket.Conn) {
		for _, msg := range testFrames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
		// Keep connection open
		time.Sleep(time.Second)
	})
	defer server.Close()

	cl := NewClient(testClientConfig(wsURL(server)), nil)
	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cl.Close()

	var received []string
	timeout := time.After(2 * time.Second)

	for i := 0; i < len(testFrames); i++ {
		select {
		case msg := <-cl.Messages():
			received = append(received, string(msg.Data))
			if msg.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-timeout:
			t.Fatalf("timeout waiting for frames, received %d of %d", len(received), len(testFrames))
		}
	}

	for i, want := range testFrames {
		if received[i] != want {
			t.Errorf("frame %d: got %q, want %q", i, received[i], want)
		}
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	cl := NewClient(testClientConfig("ws://localhost:12345"), nil)

	if err := cl.Send([]byte("test")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Send on unconnected client = %v, want ErrNotConnected", err)
	}
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	cl := NewClient(testClientConfig(wsURL(server)), nil)
	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// First close should succeed
	if err := cl.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}

	// Second close should be a no-op
	if err := cl.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	cl := NewClient(testClientConfig(wsURL(server)), nil)
	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if err := cl.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if err := cl.Connect(context.Background()); !errors.Is(err, ErrAlreadyClosed) {
		t.Errorf("Connect after Close = %v, want ErrAlreadyClosed", err)
	}
}

func TestClient_ServerPingKeepsConnectionFresh(t *testing.T) {
	server := mockWSServer(t, func(conn *websocket.Conn) {
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		// Keep reading so control frames are processed
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	cl := NewClient(testClientConfig(wsURL(server)), nil)
	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cl.Close()

	// Give the ping handler time to run, then confirm the connection is
	// still considered live.
	time.Sleep(100 * time.Millisecond)
	if !cl.IsConnected() {
		t.Error("connection dropped after server ping")
	}
	select {
	case err := <-cl.Errors():
		t.Errorf("unexpected connection error: %v", err)
	default:
	}
}

func TestClient_StaleConnection(t *testing.T) {
	// Server that never reads: our keepalive pings are never answered, so
	// the heartbeat loop must flag the connection stale.
	server := mockWSServer(t, func(conn *websocket.Conn) {
		time.Sleep(2 * time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingTimeout = 50 * time.Millisecond

	cl := NewClient(cfg, nil).(*client)
	cl.heartbeatEvery = 20 * time.Millisecond

	if err := cl.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer cl.Close()

	select {
	case err := <-cl.Errors():
		if !errors.Is(err, ErrStale) {
			t.Errorf("connection error = %v, want ErrStale", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for stale-connection error")
	}
}
