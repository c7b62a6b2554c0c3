package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/research-wizard/internal/identity"
	"github.com/ashureev/research-wizard/internal/wizard"
	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
)

func TestStreamDeliversEvents(t *testing.T) {
	stream := NewStreamHandler()

	r := chi.NewRouter()
	r.Use(identity.Middleware(true))
	r.Get("/ws/wizard", stream.ServeHTTP)

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/wizard?session_id=tab-1"
	header := http.Header{}
	header.Set("Cookie", identity.AnonCookieName+"="+testAnonID)
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") }()

	key := testAnonID + ":tab-1"

	// Registration races the dial response; retry until the listener is up.
	deadline := time.Now().Add(2 * time.Second)
	for {
		stream.mu.RLock()
		_, registered := stream.active[key]
		stream.mu.RUnlock()
		if registered {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for stream registration")
		}
		time.Sleep(5 * time.Millisecond)
	}

	stream.Notify(key, wizard.Event{
		Type:        "stage",
		Step:        "question",
		Instruction: "What do you want to know about it?",
		Summary:     "Topic: money",
	})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("websocket read failed: %v", err)
	}

	var got wizard.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("failed to decode event: %v", err)
	}
	if got.Type != "stage" || got.Step != "question" || got.Summary != "Topic: money" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestNotifyWithoutListenerIsNoop(t *testing.T) {
	stream := NewStreamHandler()
	// Must not block or panic when nobody is connected.
	stream.Notify("anon:tab-1", wizard.Event{Type: "summary"})
}
