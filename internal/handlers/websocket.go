// -----------------------------------------------------------------------
// WebSocket Handler - real-time job event streaming
// -----------------------------------------------------------------------

package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/martien2kk/workflow-scheduler/internal/interfaces"
)

// wsFrame is the JSON frame pushed to connected clients.
type wsFrame struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// WebSocketHandler broadcasts job lifecycle events to connected clients.
// It subscribes to the event service once at construction; clients come and
// go per connection.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	clients  map[*websocket.Conn]*sync.Mutex
	mu       sync.Mutex
	logger   arbor.ILogger
}

// NewWebSocketHandler creates the handler and subscribes it to the job
// lifecycle events.
func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	h := &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*sync.Mutex),
		logger:  logger,
	}

	for _, eventType := range []interfaces.EventType{
		interfaces.EventWorkflowCreated,
		interfaces.EventJobAdmitted,
		interfaces.EventJobProgress,
		interfaces.EventJobFinished,
	} {
		eventType := eventType
		if err := events.Subscribe(eventType, h.onEvent); err != nil {
			logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("WebSocket event subscription failed")
		}
	}

	return h
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away.
// GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	// Read loop only detects disconnects; clients never send data we use.
	go func() {
		defer h.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	count := len(h.clients)
	h.mu.Unlock()
	conn.Close()
	h.logger.Debug().Int("clients", count).Msg("WebSocket client disconnected")
}

// onEvent fans an event out to every connected client.
func (h *WebSocketHandler) onEvent(ctx context.Context, event interfaces.Event) error {
	frame := wsFrame{
		Type:      string(event.Type),
		Payload:   event.Payload,
		Timestamp: time.Now().UTC(),
	}

	h.mu.Lock()
	conns := make(map[*websocket.Conn]*sync.Mutex, len(h.clients))
	for conn, writeMu := range h.clients {
		conns[conn] = writeMu
	}
	h.mu.Unlock()

	for conn, writeMu := range conns {
		writeMu.Lock()
		err := conn.WriteJSON(frame)
		writeMu.Unlock()
		if err != nil {
			h.removeClient(conn)
		}
	}
	return nil
}
