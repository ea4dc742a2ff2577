// Package realtime pushes board events to connected screens over websockets.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/angelmondragon/kds-backend/internal/events"
	"github.com/angelmondragon/kds-backend/pkg/logger"
	"github.com/gorilla/websocket"
)

const (
	defaultSendBuffer = 64
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4 * 1024
)

// HubParams configure a Hub.
type HubParams struct {
	Logger     *logger.Logger
	SendBuffer int
	// CheckOrigin overrides the upgrader origin check. Nil allows every origin.
	CheckOrigin func(r *http.Request) bool
}

// Hub tracks websocket clients and broadcasts board events to them. Clients that fall
// SendBuffer events behind are disconnected.
type Hub struct {
	logg       *logger.Logger
	upgrader   websocket.Upgrader
	sendBuffer int

	mu      sync.Mutex
	closed  bool
	clients map[*client]struct{}
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	station string
	send    chan []byte
	once    sync.Once
}

func NewHub(params HubParams) (*Hub, error) {
	if params.Logger == nil {
		return nil, errors.New("logger required")
	}
	size := params.SendBuffer
	if size <= 0 {
		size = defaultSendBuffer
	}
	checkOrigin := params.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		logg:       params.Logger,
		sendBuffer: size,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// ServeHTTP upgrades the request. An optional ?station= query limits delivery to events that
// concern that station.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logg.Warn(h.logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
		return
	}
	c := &client{
		hub:     h,
		conn:    conn,
		station: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("station"))),
		send:    make(chan []byte, h.sendBuffer),
	}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// Notify broadcasts event to every interested client without blocking.
func (h *Hub) Notify(ctx context.Context, event events.BoardEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logg.Error(ctx, "encode websocket event", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(event) {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logg.Warn(h.logg.WithStationID(ctx, c.station), "websocket client too slow; disconnecting")
			h.dropLocked(c)
		}
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
	return nil
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	c.once.Do(func() { close(c.send) })
}

func (c *client) wants(event events.BoardEvent) bool {
	if c.station == "" {
		return true
	}
	if event.StationID == c.station {
		return true
	}
	if event.Message != nil {
		return event.Message.FromStationID == c.station || event.Message.AddressedTo(c.station)
	}
	if event.Order != nil {
		_, ok := event.Order.StationStatuses[c.station]
		return ok
	}
	if event.Completed != nil {
		_, ok := event.Completed.StationStatuses[c.station]
		return ok
	}
	return event.StationID == ""
}

// readPump discards inbound frames and keeps the pong deadline fresh.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
