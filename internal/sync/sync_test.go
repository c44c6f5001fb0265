package sync

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/internal/auth"
	"moviehub/pkg/models"
)

func testTokens() auth.TokenService {
	return auth.TokenService{Secret: []byte("s3cret"), Issuer: "moviehub", Duration: time.Hour}
}

func startServer(t *testing.T, hub *Hub, tokens *auth.TokenService) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", hub, tokens)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		hub.CloseAll()
	})

	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("tcp server did not start")
	}
	return srv
}

func readEvent(t *testing.T, r *bufio.Reader) map[string]any {
	t.Helper()
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	return m
}

func TestTCP_AuthThenBroadcast(t *testing.T) {
	hub := NewHub()
	ts := testTokens()
	srv := startServer(t, hub, &ts)

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	tok, _, err := ts.Sign("ops", auth.RoleOperator)
	require.NoError(t, err)
	_, err = conn.Write([]byte(tok + "\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	assert.Equal(t, EventWelcome, readEvent(t, r)["type"])

	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 1 }, 2*time.Second, 10*time.Millisecond)

	NewHubSink(hub).NotifyEscalation(context.Background(), models.Escalation{Text: "avatar 3", MissCount: 3, At: time.Now()})

	ev := readEvent(t, r)
	assert.Equal(t, EventDemandEscalated, ev["type"])
	esc := ev["escalation"].(map[string]any)
	assert.Equal(t, "avatar 3", esc["text"])
}

func TestTCP_RejectsBadToken(t *testing.T) {
	hub := NewHub()
	ts := testTokens()
	srv := startServer(t, hub, &ts)

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	transport, _, err := ts.Sign("bot", auth.RoleTransport)
	require.NoError(t, err)
	_, err = conn.Write([]byte(transport + "\n"))
	require.NoError(t, err)

	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, "unauthorized")
	assert.Equal(t, 0, hub.Stats().TCPClients)
}

func TestTCP_NoAuthConfigured(t *testing.T) {
	hub := NewHub()
	srv := startServer(t, hub, nil)

	conn, err := net.Dial("tcp", srv.ListenAddr().String())
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	r := bufio.NewReader(conn)
	assert.Equal(t, EventWelcome, readEvent(t, r)["type"])
	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 1 }, 2*time.Second, 10*time.Millisecond)

	NewHubSink(hub).PublishIngested(models.CatalogEntry{ID: 1, NormalizedTitle: "heat"})
	ev := readEvent(t, r)
	assert.Equal(t, EventCatalogIngested, ev["type"])
}

func TestWS_Feed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub()
	ts := testTokens()
	r := gin.New()
	r.GET("/events/ws", WSHandler(hub, ts, nil))
	srv := httptest.NewServer(r)
	defer srv.Close()
	defer hub.CloseAll()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/events/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	tok, _, err := ts.Sign("ops", auth.RoleOperator)
	require.NoError(t, err)
	ws, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+tok, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))

	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), EventWelcome)

	require.Eventually(t, func() bool { return hub.Stats().WSClients == 1 }, 2*time.Second, 10*time.Millisecond)

	NewHubSink(hub).RequestResolved(7, models.CatalogEntry{ID: 3, NormalizedTitle: "alien"})
	_, msg, err = ws.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, EventRequestResolved, ev.Type)
	assert.Equal(t, int64(7), ev.UserID)
	require.NotNil(t, ev.Entry)
	assert.Equal(t, "alien", ev.Entry.NormalizedTitle)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://ops.example.com"})

	req := httptest.NewRequest(http.MethodGet, "http://api.example.com/events/ws", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "https://ops.example.com")
	assert.True(t, check(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))

	req.Header.Set("Origin", "https://api.example.com")
	assert.True(t, check(req), "same origin")
}

func TestBroadcast_StalledClientDoesNotBlock(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	server, stalled := net.Pipe()
	defer stalled.Close()
	hub.Add(server)

	start := time.Now()
	for i := 0; i < sendQueueSize+10; i++ {
		hub.Broadcast(Event{Type: EventCatalogIngested})
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	require.Eventually(t, func() bool { return hub.Stats().TCPClients == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcast_ReadingClientKeepsOrder(t *testing.T) {
	hub := NewHub()
	defer hub.CloseAll()

	server, reader := net.Pipe()
	defer reader.Close()
	hub.Add(server)

	hub.Broadcast(Event{Type: EventCatalogIngested})
	hub.Broadcast(Event{Type: EventDemandEscalated})

	require.NoError(t, reader.SetReadDeadline(time.Now().Add(3*time.Second)))
	r := bufio.NewReader(reader)
	assert.Equal(t, EventCatalogIngested, readEvent(t, r)["type"])
	assert.Equal(t, EventDemandEscalated, readEvent(t, r)["type"])
}
