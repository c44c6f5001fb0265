package notify

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/models"
)

func TestEscalationMessage(t *testing.T) {
	m := EscalationMessage(models.Escalation{Text: "avatar 3", MissCount: 4, At: time.Unix(0, 0)})
	assert.Equal(t, TypeEscalation, m.Type)
	assert.Equal(t, "Repeated search for a missing movie: 'avatar 3' (count: 4)", m.Message)
	assert.Equal(t, "1970-01-01T00:00:00Z", m.At)
}

func TestSuggestionMessage_SenderFallback(t *testing.T) {
	m := SuggestionMessage(models.Suggestion{UserID: 12, Text: "Heat"})
	assert.Equal(t, "New suggestion from 12:\nHeat", m.Message)

	m = SuggestionMessage(models.Suggestion{UserID: 12, UserName: "sam", Text: "Heat"})
	assert.Equal(t, "New suggestion from sam:\nHeat", m.Message)
}

type countingSink struct {
	mu          sync.Mutex
	escalations int
	suggestions int
}

func (c *countingSink) NotifyEscalation(context.Context, models.Escalation) {
	c.mu.Lock()
	c.escalations++
	c.mu.Unlock()
}

func (c *countingSink) NotifySuggestion(context.Context, models.Suggestion) {
	c.mu.Lock()
	c.suggestions++
	c.mu.Unlock()
}

func TestMulti(t *testing.T) {
	a, b := &countingSink{}, &countingSink{}
	m := Multi{a, b, LogSink{}}
	m.NotifyEscalation(context.Background(), models.Escalation{Text: "x", MissCount: 3})
	m.NotifySuggestion(context.Background(), models.Suggestion{Text: "y"})

	assert.Equal(t, 1, a.escalations)
	assert.Equal(t, 1, b.escalations)
	assert.Equal(t, 1, a.suggestions)
	assert.Equal(t, 1, b.suggestions)
}

func TestWebhook(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Message
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m Message
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&m))
		mu.Lock()
		got = append(got, m)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	wh.NotifyEscalation(ctx, models.Escalation{Text: "avatar 3", MissCount: 3, At: time.Now()})
	// the triggering request finishing must not abort delivery
	cancel()
	wh.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, TypeEscalation, got[0].Type)
	assert.Equal(t, int64(3), got[0].MissCount)
}

func TestWebhook_FailureIsSwallowed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	wh := NewWebhook(srv.URL, time.Second)
	wh.NotifySuggestion(context.Background(), models.Suggestion{Text: "x"})
	wh.Wait()
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9999}

	r.Register("", addr)
	r.Register("ops", nil)
	assert.Empty(t, r.Snapshot())

	r.Register("ops", addr)
	r.Register("ops", addr)
	assert.Len(t, r.Snapshot(), 1)

	r.Remove("ops")
	assert.Empty(t, r.Snapshot())
}

func TestParseRegisterMessage(t *testing.T) {
	msg, err := parseRegisterMessage([]byte(`{"type":"register","operator":" ops "}`))
	require.NoError(t, err)
	assert.Equal(t, "ops", msg.Operator)

	_, err = parseRegisterMessage([]byte(`{"type":"register"}`))
	assert.Error(t, err)

	_, err = parseRegisterMessage([]byte(`not json`))
	assert.Error(t, err)
}

func TestServer_RegisterAndBroadcast(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	select {
	case <-srv.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not bind")
	}

	client, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer client.Close()

	serverAddr := srv.LocalAddr().(*net.UDPAddr)
	_, err = client.WriteToUDP([]byte(`{"type":"register","operator":"ops"}`), serverAddr)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(srv.Registry().Snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)

	srv.NotifyEscalation(context.Background(), models.Escalation{Text: "avatar 3", MissCount: 3, At: time.Now()})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	buf := make([]byte, 2048)
	n, _, err := client.ReadFromUDP(buf)
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(buf[:n], &msg))
	assert.Equal(t, TypeEscalation, msg.Type)
	assert.Equal(t, "avatar 3", msg.Text)
}

func TestServer_BroadcastWhenStopped(t *testing.T) {
	srv := NewServer("127.0.0.1:0", nil)
	// not running: logged and dropped
	srv.NotifySuggestion(context.Background(), models.Suggestion{Text: "x"})
	assert.Nil(t, srv.LocalAddr())
}
