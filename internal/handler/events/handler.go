package events

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/structai/structai/backend/internal/render"
)

const writeTimeout = 5 * time.Second

// Handler pushes display-surface updates to connected websocket clients so
// the page learns about finished or failed renders without polling.
type Handler struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New creates the events handler and subscribes it to the surface.
func New(surface *render.Surface) *Handler {
	h := &Handler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[*websocket.Conn]struct{}),
	}
	surface.AddListener(h.broadcast)
	return h
}

// RegisterRoutes registers the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/diagram", h.handleWebSocket)
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[events] websocket upgrade failed: %v", err)
		return
	}

	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	log.Printf("[events] client connected, total=%d", h.clientCount())

	// Drain control frames until the client goes away.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// broadcast fans a surface update out to every connected client. Clients
// whose write fails are dropped.
func (h *Handler) broadcast(update render.Update) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(update); err != nil {
			log.Printf("[events] dropping client after write failure: %v", err)
			h.drop(conn)
		}
	}
}

func (h *Handler) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		_ = conn.Close()
	}
	h.mu.Unlock()
}

func (h *Handler) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
