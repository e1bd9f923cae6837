package api

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/snoozarr/snoozarr/internal/domain"
	"github.com/snoozarr/snoozarr/internal/testutil"
)

func TestNewWebSocketHub(t *testing.T) {
	eb := testutil.NewMockEventBus()
	hub := NewWebSocketHub(eb)

	if hub == nil {
		t.Fatal("NewWebSocketHub should not return nil")
	}
	if hub.clients == nil {
		t.Error("clients map should be initialized")
	}
	if hub.broadcast == nil {
		t.Error("broadcast channel should be initialized")
	}

	// The hub subscribes to all timer lifecycle events
	for _, et := range []domain.EventType{domain.TimerStarted, domain.TimerTick, domain.TimerExpired} {
		if len(eb.Subscribers[et]) != 1 {
			t.Errorf("Hub should subscribe to %s", et)
		}
	}
}

func TestWebSocketHub_ClientCount_Empty(t *testing.T) {
	hub := NewWebSocketHub(testutil.NewMockEventBus())

	if count := hub.ClientCount(); count != 0 {
		t.Errorf("ClientCount() = %d, want 0 for empty hub", count)
	}
}

func TestWebSocketHub_HandleConnection(t *testing.T) {
	hub := NewWebSocketHub(testutil.NewMockEventBus())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		hub.HandleConnection(c)
	})

	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v (resp=%v)", err, resp)
	}
	defer ws.Close()

	// First message is the initial ping
	var msg map[string]interface{}
	ws.SetReadDeadline(time.Now().Add(time.Second))
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read initial message: %v", err)
	}
	if msg["type"] != "ping" {
		t.Errorf("First message type = %v, want 'ping'", msg["type"])
	}

	// Give registration time to settle
	time.Sleep(50 * time.Millisecond)
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestWebSocketHub_EventBroadcast(t *testing.T) {
	eb := testutil.NewMockEventBus()
	hub := NewWebSocketHub(eb)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		hub.HandleConnection(c)
	})

	server := httptest.NewServer(r)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	defer ws.Close()

	// Wait for registration
	time.Sleep(50 * time.Millisecond)

	received := make(chan map[string]interface{}, 10)
	go func() {
		for {
			var msg map[string]interface{}
			if err := ws.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
		}
	}()

	// MockEventBus delivers synchronously, so the subscriber pushes to the
	// hub's broadcast channel from this goroutine
	go eb.Publish(domain.Event{
		EventType: domain.TimerStarted,
		EventData: map[string]interface{}{"total_seconds": int64(1800)},
	})

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-received:
			if msg["type"] == "ping" {
				continue // skip the initial ping
			}
			if msg["type"] != "event" {
				t.Errorf("Received message type = %v, want 'event'", msg["type"])
			}
			return
		case <-deadline:
			t.Fatal("Timeout waiting for event broadcast")
		}
	}
}

func TestGetWebSocketUpgrader_WildcardCORS(t *testing.T) {
	t.Setenv("SNOOZARR_CORS_ORIGIN", "*")

	upgrader := getWebSocketUpgrader()

	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://any-origin.example.com")

	if !upgrader.CheckOrigin(req) {
		t.Error("Wildcard CORS should allow any origin")
	}
}

func TestGetWebSocketUpgrader_SpecificOrigins(t *testing.T) {
	t.Setenv("SNOOZARR_CORS_ORIGIN", "https://allowed1.com,https://allowed2.com")

	upgrader := getWebSocketUpgrader()

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://allowed1.com", true},
		{"https://allowed2.com", true},
		{"https://notallowed.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}

			if got := upgrader.CheckOrigin(req); got != tt.allowed {
				t.Errorf("CheckOrigin(%q) = %v, want %v", tt.origin, got, tt.allowed)
			}
		})
	}
}

func TestGetWebSocketUpgrader_NoCORS_SameOrigin(t *testing.T) {
	t.Setenv("SNOOZARR_CORS_ORIGIN", "")

	upgrader := getWebSocketUpgrader()

	// Request without Origin header (same-origin)
	req1 := httptest.NewRequest("GET", "/ws", nil)
	req1.Host = "localhost:3099"
	if !upgrader.CheckOrigin(req1) {
		t.Error("Same-origin request (no Origin header) should be allowed")
	}

	// Request with matching host in Origin
	req2 := httptest.NewRequest("GET", "/ws", nil)
	req2.Host = "localhost:3099"
	req2.Header.Set("Origin", "http://localhost:3099")
	if !upgrader.CheckOrigin(req2) {
		t.Error("Same-origin request should be allowed")
	}
}
