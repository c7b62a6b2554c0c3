package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/research-wizard/internal/identity"
	"github.com/ashureev/research-wizard/internal/wizard"
	"github.com/coder/websocket"
)

// streamBuffer bounds how many undelivered events a slow client may queue
// before newer ones replace the oldest.
const streamBuffer = 16

// writeTimeout caps a single websocket write to a stalled client.
const writeTimeout = 5 * time.Second

// streamConn is one live listener with its delivery queue. Events are queued
// so the wizard manager never blocks on a slow websocket.
type streamConn struct {
	ws     *websocket.Conn
	events chan wizard.Event
}

// StreamHandler pushes wizard events (stage entries, refreshed summaries)
// over a websocket so the summary pane tracks the conversation live. It
// implements wizard.Notifier.
type StreamHandler struct {
	mu     sync.RWMutex
	active map[string]*streamConn // wizard key -> connection
}

// NewStreamHandler creates the live event handler.
func NewStreamHandler() *StreamHandler {
	return &StreamHandler{active: make(map[string]*streamConn)}
}

// Notify implements wizard.Notifier. It never blocks: when a client's queue
// is full the oldest event is dropped, since every event carries the full
// current summary anyway.
func (h *StreamHandler) Notify(key string, ev wizard.Event) {
	h.mu.RLock()
	conn, ok := h.active[key]
	h.mu.RUnlock()
	if !ok {
		return
	}

	for {
		select {
		case conn.events <- ev:
			return
		default:
			select {
			case <-conn.events:
			default:
			}
		}
	}
}

func (h *StreamHandler) register(key string, conn *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.active[key]; ok && existing != conn {
		_ = existing.ws.Close(websocket.StatusNormalClosure, "session replaced")
	}
	h.active[key] = conn
	slog.Info("wizard stream registered", "key", key)
}

func (h *StreamHandler) unregister(key string, conn *streamConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if current, ok := h.active[key]; ok && current == conn {
		delete(h.active, key)
		slog.Info("wizard stream unregistered", "key", key)
	}
}

// ServeHTTP implements http.Handler for the websocket upgrade.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := identity.Key(r.Context())

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "key", key)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "key", key)
		}
	}()

	conn := &streamConn{ws: ws, events: make(chan wizard.Event, streamBuffer)}
	h.register(key, conn)
	defer h.unregister(key, conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Drain incoming frames so pings and close frames are processed; the
	// stream itself is one-way.
	go func() {
		defer cancel()
		for {
			if _, _, err := ws.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("wizard stream disconnected", "key", key)
			return
		case ev := <-conn.events:
			if err := h.writeEvent(ctx, ws, ev); err != nil {
				slog.Debug("wizard stream write failed", "error", err, "key", key)
				return
			}
		}
	}
}

func (h *StreamHandler) writeEvent(ctx context.Context, ws *websocket.Conn, ev wizard.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
