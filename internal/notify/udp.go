package notify

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"moviehub/internal/logging"
	"moviehub/internal/metrics"
	"moviehub/pkg/models"
)

const RegisterMessageType = "register"

// RegisterMessage is what an operator console sends to subscribe.
type RegisterMessage struct {
	Type     string `json:"type"`
	Operator string `json:"operator"`
}

type Client struct {
	Operator string
	Addr     *net.UDPAddr
}

// Registry maps operator names to their last seen UDP address.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]Client)}
}

func (r *Registry) Register(operator string, addr *net.UDPAddr) {
	if operator == "" || addr == nil {
		return
	}
	r.mu.Lock()
	r.clients[operator] = Client{Operator: operator, Addr: addr}
	n := len(r.clients)
	r.mu.Unlock()
	metrics.EventClients.WithLabelValues("udp").Set(float64(n))
}

func (r *Registry) Remove(operator string) {
	r.mu.Lock()
	delete(r.clients, operator)
	n := len(r.clients)
	r.mu.Unlock()
	metrics.EventClients.WithLabelValues("udp").Set(float64(n))
}

func (r *Registry) Snapshot() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.clients))
	for _, client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Server listens for operator registrations and pushes events to every
// registered address. It is a Sink and a suture service.
type Server struct {
	addr     string
	registry *Registry

	mu    sync.RWMutex
	conn  *net.UDPConn
	ready chan struct{}
}

func NewServer(addr string, registry *Registry) *Server {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Server{addr: addr, registry: registry, ready: make(chan struct{})}
}

func (s *Server) Registry() *Registry { return s.registry }

// Ready is closed once the socket is bound.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// LocalAddr is the bound address, or nil before Serve binds.
func (s *Server) LocalAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

func (s *Server) Serve(ctx context.Context) error {
	udpAddr, err := net.ResolveUDPAddr("udp", s.addr)
	if err != nil {
		return err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	logging.Info().Str("addr", conn.LocalAddr().String()).Msg("UDP notify server listening")

	buffer := make([]byte, 2048)
	for {
		n, addr, err := conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		msg, err := parseRegisterMessage(buffer[:n])
		if err != nil {
			logging.Debug().Err(err).Str("from", addr.String()).Msg("invalid UDP message")
			continue
		}
		if msg.Type != RegisterMessageType {
			continue
		}
		s.registry.Register(msg.Operator, addr)
		logging.Info().Str("operator", msg.Operator).Str("addr", addr.String()).Msg("registered UDP operator")
	}
}

func (s *Server) String() string { return "udp-notify" }

func (s *Server) NotifyEscalation(_ context.Context, e models.Escalation) {
	s.broadcast(EscalationMessage(e))
}

func (s *Server) NotifySuggestion(_ context.Context, sg models.Suggestion) {
	s.broadcast(SuggestionMessage(sg))
}

func (s *Server) broadcast(msg Message) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()
	if conn == nil {
		logging.Warn().Str("type", msg.Type).Msg("UDP notify server not running")
		record("udp", errors.New("not running"))
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		logging.Error().Err(err).Msg("marshal UDP broadcast")
		return
	}

	for _, client := range s.registry.Snapshot() {
		err := s.sendWithRetry(conn, client, payload)
		record("udp", err)
	}
}

// sendWithRetry tries twice, then forgets the operator.
func (s *Server) sendWithRetry(conn *net.UDPConn, client Client, payload []byte) error {
	if err := sendOnce(conn, client, payload); err == nil {
		return nil
	}
	if err := sendOnce(conn, client, payload); err != nil {
		logging.Warn().Err(err).Str("operator", client.Operator).Str("addr", client.Addr.String()).
			Msg("UDP notify failed, dropping operator")
		s.registry.Remove(client.Operator)
		return err
	}
	return nil
}

func sendOnce(conn *net.UDPConn, client Client, payload []byte) error {
	if client.Addr == nil {
		return errors.New("missing client address")
	}
	_, err := conn.WriteToUDP(payload, client.Addr)
	return err
}

func parseRegisterMessage(data []byte) (RegisterMessage, error) {
	var msg RegisterMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	msg.Operator = strings.TrimSpace(msg.Operator)
	if msg.Operator == "" || msg.Type == "" {
		return msg, errors.New("missing required fields")
	}
	return msg, nil
}
