package api

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Event is pushed to a session's websocket subscribers.
type Event struct {
	Type    string   `json:"type"`
	Session string   `json:"session,omitempty"`
	Slot    string   `json:"slot,omitempty"`
	Token   uint64   `json:"token,omitempty"`
	Stage   string   `json:"stage,omitempty"`
	Detail  string   `json:"detail,omitempty"`
	Error   string   `json:"error,omitempty"`
	Files   int      `json:"files,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Event types.
const (
	EventHello   = "hello"
	EventPreview = "preview"
	EventExport  = "export"
	EventDone    = "export-done"
)

// connWithMutex serialises writes to one connection.
type connWithMutex struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub fans events out to the websocket connections of each session.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[*websocket.Conn]*connWithMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*websocket.Conn]*connWithMutex)}
}

// Add subscribes conn to topic.
func (h *Hub) Add(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.topics[topic]
	if !ok {
		conns = make(map[*websocket.Conn]*connWithMutex)
		h.topics[topic] = conns
	}
	conns[conn] = &connWithMutex{conn: conn}
}

// Remove unsubscribes conn.
func (h *Hub) Remove(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.topics[topic]
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.topics, topic)
	}
}

// Count returns the number of subscribers on topic.
func (h *Hub) Count(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Broadcast sends msg to every subscriber of topic. Connections that fail
// are dropped.
func (h *Hub) Broadcast(topic string, msg any) {
	h.mu.RLock()
	conns := make([]*connWithMutex, 0, len(h.topics[topic]))
	for _, cwm := range h.topics[topic] {
		conns = append(conns, cwm)
	}
	h.mu.RUnlock()

	for _, cwm := range conns {
		cwm.mu.Lock()
		err := cwm.conn.WriteJSON(msg)
		cwm.mu.Unlock()
		if err != nil {
			h.Remove(topic, cwm.conn)
		}
	}
}

// WriteJSON writes msg to one subscriber, honouring its write lock.
func (h *Hub) WriteJSON(topic string, conn *websocket.Conn, msg any) error {
	h.mu.RLock()
	cwm, ok := h.topics[topic][conn]
	h.mu.RUnlock()
	if !ok {
		return conn.WriteJSON(msg)
	}
	cwm.mu.Lock()
	defer cwm.mu.Unlock()
	return cwm.conn.WriteJSON(msg)
}

// CloseTopic disconnects and forgets every subscriber of topic.
func (h *Hub) CloseTopic(topic string) {
	h.mu.Lock()
	conns := h.topics[topic]
	delete(h.topics, topic)
	h.mu.Unlock()

	for _, cwm := range conns {
		cwm.mu.Lock()
		_ = cwm.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
		_ = cwm.conn.Close()
		cwm.mu.Unlock()
	}
}
