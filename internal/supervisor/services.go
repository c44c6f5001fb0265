package supervisor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"moviehub/internal/logging"
)

type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPService adapts an http.Server to suture.Service with graceful shutdown.
type HTTPService struct {
	server          HTTPServer
	shutdownTimeout time.Duration
}

func NewHTTPService(server HTTPServer, shutdownTimeout time.Duration) *HTTPService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPService{server: server, shutdownTimeout: shutdownTimeout}
}

func (h *HTTPService) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		return ctx.Err()
	}
}

func (h *HTTPService) String() string { return "http-server" }

// PeriodicService runs Fn every Interval until stopped.
type PeriodicService struct {
	Name     string
	Interval time.Duration
	Fn       func(ctx context.Context)
}

func (p *PeriodicService) Serve(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Fn(ctx)
		}
	}
}

func (p *PeriodicService) String() string { return p.Name }

// FuncService wraps a Serve-shaped function, e.g. sync.Server.Serve.
type FuncService struct {
	Name string
	Run  func(ctx context.Context) error
}

func (f FuncService) Serve(ctx context.Context) error {
	err := f.Run(ctx)
	if err != nil && ctx.Err() == nil {
		logging.Warn().Err(err).Str("service", f.Name).Msg("service exited")
	}
	return err
}

func (f FuncService) String() string { return f.Name }
