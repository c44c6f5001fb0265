package sync

import (
	"net"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"moviehub/internal/logging"
	"moviehub/internal/metrics"
)

const (
	writeTimeout  = 2 * time.Second
	sendQueueSize = 64
)

// client owns one connection's outbound queue. Only its writer goroutine
// writes to the connection after registration.
type client struct {
	send  chan []byte
	write func([]byte) error
	close func() error
}

// Hub fans events out to every connected TCP and WebSocket client.
// Broadcast only enqueues; a client whose queue is full, or whose write
// misses writeTimeout, is dropped.
type Hub struct {
	mu        sync.Mutex
	clients   map[net.Conn]*client
	wsClients map[*websocket.Conn]*client
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub() *Hub {
	return &Hub{
		clients:   make(map[net.Conn]*client),
		wsClients: make(map[*websocket.Conn]*client),
	}
}

func (h *Hub) Add(conn net.Conn) {
	c := &client{
		send: make(chan []byte, sendQueueSize),
		write: func(b []byte) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, err := conn.Write(b)
			return err
		},
		close: conn.Close,
	}
	h.mu.Lock()
	h.clients[conn] = c
	h.updateGauges()
	h.mu.Unlock()

	go h.writeLoop(c, func() { h.Remove(conn) })
}

func (h *Hub) Remove(conn net.Conn) {
	h.mu.Lock()
	if c, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		close(c.send)
	}
	h.updateGauges()
	h.mu.Unlock()
	_ = conn.Close()
}

func (h *Hub) AddWS(ws *websocket.Conn) {
	c := &client{
		send: make(chan []byte, sendQueueSize),
		write: func(b []byte) error {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			return ws.WriteMessage(websocket.TextMessage, b)
		},
		close: ws.Close,
	}
	h.mu.Lock()
	h.wsClients[ws] = c
	h.updateGauges()
	h.mu.Unlock()

	go h.writeLoop(c, func() { h.RemoveWS(ws) })
}

func (h *Hub) RemoveWS(ws *websocket.Conn) {
	h.mu.Lock()
	if c, ok := h.wsClients[ws]; ok {
		delete(h.wsClients, ws)
		close(c.send)
	}
	h.updateGauges()
	h.mu.Unlock()
	_ = ws.Close()
}

func (h *Hub) writeLoop(c *client, drop func()) {
	for b := range c.send {
		if err := c.write(b); err != nil {
			logging.Debug().Err(err).Msg("event feed write failed, dropping client")
			drop()
			return
		}
	}
}

// Broadcast queues ev as one JSON line for all clients without waiting on
// any of them.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		logging.Error().Err(err).Str("type", ev.Type).Msg("marshal event")
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, c := range h.clients {
		select {
		case c.send <- b:
		default:
			logging.Warn().Str("remote", conn.RemoteAddr().String()).Msg("tcp feed client too slow, dropping")
			delete(h.clients, conn)
			close(c.send)
			_ = c.close()
		}
	}
	for ws, c := range h.wsClients {
		select {
		case c.send <- b:
		default:
			logging.Warn().Str("remote", ws.RemoteAddr().String()).Msg("ws feed client too slow, dropping")
			delete(h.wsClients, ws)
			close(c.send)
			_ = c.close()
		}
	}
	h.updateGauges()
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{
		TCPClients: len(h.clients),
		WSClients:  len(h.wsClients),
	}
}

// CloseAll disconnects every client; used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, c := range h.clients {
		delete(h.clients, conn)
		close(c.send)
		_ = c.close()
	}
	for ws, c := range h.wsClients {
		delete(h.wsClients, ws)
		close(c.send)
		_ = c.close()
	}
	h.updateGauges()
}

func (h *Hub) welcome() []byte {
	st := Stats{TCPClients: len(h.clients), WSClients: len(h.wsClients)}
	b, _ := json.Marshal(struct {
		Type string `json:"type"`
		Stats
	}{Type: EventWelcome, Stats: st})
	return append(b, '\n')
}

// Welcome returns the greeting line including the current client counts.
func (h *Hub) Welcome() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.welcome()
}

// updateGauges must be called with mu held.
func (h *Hub) updateGauges() {
	metrics.EventClients.WithLabelValues("tcp").Set(float64(len(h.clients)))
	metrics.EventClients.WithLabelValues("ws").Set(float64(len(h.wsClients)))
}
