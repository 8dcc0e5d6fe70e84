package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

type hubMessage struct {
	Type           string    `json:"type"`
	Message        string    `json:"message,omitempty"`
	PresentationID string    `json:"presentationId,omitempty"`
	Record         *Record   `json:"record,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

type hubClient struct {
	conn           *websocket.Conn
	send           chan []byte
	presentationID string
	userID         string
}

// Hub fans records out to browser sessions watching a presentation.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*hubClient]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHub(logger *zap.Logger, allowedOrigin string) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms: make(map[string]map[*hubClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		log: logger.Named("hub"),
	}
}

func (h *Hub) Name() string { return "websocket" }

// Publish queues rec for every client in the presentation's room. Clients
// that cannot keep up are disconnected.
func (h *Hub) Publish(_ context.Context, rec Record) error {
	payload, err := json.Marshal(hubMessage{
		Type:           "operation_update",
		PresentationID: rec.PresentationID,
		Record:         &rec,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode hub message: %w", err)
	}

	var slow []*hubClient
	h.mu.RLock()
	for c := range h.rooms[rec.PresentationID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("dropping slow websocket client", zap.String("presentation_id", c.presentationID), zap.String("user_id", c.userID))
		h.unregister(c)
	}
	return nil
}

// ServeWS upgrades the request and serves the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, presentationID, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &hubClient{
		conn:           conn,
		send:           make(chan []byte, sendBuffer),
		presentationID: presentationID,
		userID:         userID,
	}
	h.register(c)
	h.direct(c, hubMessage{Type: "welcome", Message: "connected", PresentationID: presentationID})

	go h.writeLoop(c)
	h.readLoop(c)
}

// Count reports the clients connected to one presentation.
func (h *Hub) Count(presentationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[presentationID])
}

// Close disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	var all []*hubClient
	for _, room := range h.rooms {
		for c := range room {
			all = append(all, c)
		}
	}
	h.mu.Unlock()
	for _, c := range all {
		h.unregister(c)
	}
	return nil
}

func (h *Hub) register(c *hubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.presentationID]
	if !ok {
		room = make(map[*hubClient]struct{})
		h.rooms[c.presentationID] = room
	}
	room[c] = struct{}{}
	h.log.Debug("websocket connected", zap.String("presentation_id", c.presentationID), zap.Int("clients", len(room)))
}

func (h *Hub) unregister(c *hubClient) {
	h.mu.Lock()
	room := h.rooms[c.presentationID]
	if _, ok := room[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.presentationID)
	}
	close(c.send)
	h.mu.Unlock()
	_ = c.conn.Close()
}

func (h *Hub) direct(c *hubClient, msg hubMessage) {
	msg.Timestamp = time.Now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.rooms[c.presentationID][c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

func (h *Hub) readLoop(c *hubClient) {
	defer h.unregister(c)
	c.conn.SetReadLimit(64 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var in struct {
			Type string `json:"type"`
		}
		if err := c.conn.ReadJSON(&in); err != nil {
			return
		}
		switch in.Type {
		case "ping":
			h.direct(c, hubMessage{Type: "pong"})
		default:
			h.direct(c, hubMessage{Type: "error", Message: "unknown message type"})
		}
	}
}

func (h *Hub) writeLoop(c *hubClient) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
