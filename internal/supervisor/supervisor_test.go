package supervisor

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	started   chan struct{}
	stop      chan struct{}
	listenErr error
	shutdown  atomic.Bool
}

func newFakeServer() *fakeServer {
	return &fakeServer{started: make(chan struct{}), stop: make(chan struct{})}
}

func (f *fakeServer) ListenAndServe() error {
	if f.listenErr != nil {
		return f.listenErr
	}
	close(f.started)
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdown.Store(true)
	close(f.stop)
	return nil
}

func TestHTTPService_GracefulShutdown(t *testing.T) {
	srv := newFakeServer()
	svc := NewHTTPService(srv, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	<-srv.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
	assert.True(t, srv.shutdown.Load())
	assert.Equal(t, "http-server", svc.String())
}

func TestHTTPService_ListenError(t *testing.T) {
	srv := newFakeServer()
	srv.listenErr = errors.New("address in use")
	err := NewHTTPService(srv, time.Second).Serve(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address in use")
}

func TestPeriodicService(t *testing.T) {
	var calls atomic.Int32
	p := &PeriodicService{Name: "prune", Interval: 5 * time.Millisecond, Fn: func(context.Context) { calls.Add(1) }}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestTree_RunsServices(t *testing.T) {
	tree := NewTree(TreeConfig{ShutdownTimeout: time.Second})

	var feedRuns, apiRuns atomic.Int32
	tree.AddFeedService(FuncService{Name: "feed", Run: func(ctx context.Context) error {
		feedRuns.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}})
	tree.AddAPIService(FuncService{Name: "api", Run: func(ctx context.Context) error {
		apiRuns.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	require.Eventually(t, func() bool { return feedRuns.Load() == 1 && apiRuns.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
}
