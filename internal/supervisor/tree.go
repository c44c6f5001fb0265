// Package supervisor runs the long-lived services (HTTP API, TCP event feed,
// UDP operator notifications, housekeeping) under a suture tree so a crash
// in one is restarted without taking down the others.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"

	"moviehub/internal/logging"
)

type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree has two layers: feeds (event and notification listeners, background
// jobs) and api (the HTTP server).
type Tree struct {
	root  *suture.Supervisor
	feeds *suture.Supervisor
	api   *suture.Supervisor
}

func NewTree(cfg TreeConfig) *Tree {
	def := DefaultTreeConfig()
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = def.FailureDecay
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = def.FailureBackoff
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = def.ShutdownTimeout
	}

	spec := suture.Spec{
		EventHook:        logEvent,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := spec
	childSpec.EventHook = nil

	root := suture.New("moviehub", spec)
	feeds := suture.New("feeds", childSpec)
	api := suture.New("api", childSpec)
	root.Add(feeds)
	root.Add(api)

	return &Tree{root: root, feeds: feeds, api: api}
}

func (t *Tree) AddFeedService(svc suture.Service) suture.ServiceToken {
	return t.feeds.Add(svc)
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is cancelled and every service has stopped.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

// logEvent records restarts, panics and backoffs from any supervisor.
func logEvent(e suture.Event) {
	logging.Warn().Fields(e.Map()).Msg(e.String())
}
