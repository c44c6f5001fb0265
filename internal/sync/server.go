package sync

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"moviehub/internal/auth"
	"moviehub/internal/logging"
)

const authTimeout = 5 * time.Second

// Server accepts line-oriented TCP feed clients. When Tokens is set, the
// first line a client sends must be an operator token.
type Server struct {
	Addr   string
	Hub    *Hub
	Tokens *auth.TokenService

	mu    sync.RWMutex
	ln    net.Listener
	ready chan struct{}
}

func NewServer(addr string, hub *Hub, tokens *auth.TokenService) *Server {
	return &Server{Addr: addr, Hub: hub, Tokens: tokens, ready: make(chan struct{})}
}

func (s *Server) Ready() <-chan struct{} { return s.ready }

func (s *Server) ListenAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) String() string { return "tcp-sync" }

// Serve runs until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	select {
	case <-s.ready:
	default:
		close(s.ready)
	}
	logging.Info().Str("addr", ln.Addr().String()).Msg("tcp sync listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			logging.Warn().Err(err).Msg("tcp sync accept")
			continue
		}
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	sc := bufio.NewScanner(conn)

	if s.Tokens != nil {
		_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
		if !sc.Scan() || !s.authorized(strings.TrimSpace(sc.Text())) {
			_, _ = conn.Write([]byte(`{"type":"error","message":"unauthorized"}` + "\n"))
			_ = conn.Close()
			return
		}
		_ = conn.SetReadDeadline(time.Time{})
	}

	_, _ = conn.Write(s.Hub.Welcome())
	s.Hub.Add(conn)
	logging.Debug().Str("remote", conn.RemoteAddr().String()).Msg("tcp sync client connected")

	defer func() {
		s.Hub.Remove(conn)
		logging.Debug().Str("remote", conn.RemoteAddr().String()).Msg("tcp sync client disconnected")
	}()

	// input after the handshake is ignored; reading detects disconnects
	for sc.Scan() {
	}
}

func (s *Server) authorized(raw string) bool {
	claims, err := s.Tokens.Parse(raw)
	return err == nil && claims.Role == auth.RoleOperator
}
