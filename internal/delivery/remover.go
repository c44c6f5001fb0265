package delivery

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"moviehub/internal/breaker"
)

// Remover asks the chat transport to take a delivered message back.
type Remover interface {
	Remove(ctx context.Context, t Token) error
}

// NopRemover leaves the removal to whoever called the retract endpoint; the
// consumed token is returned in that response.
type NopRemover struct{}

func (NopRemover) Remove(context.Context, Token) error { return nil }

// WebhookRemover POSTs the consumed token to the transport as JSON. Any
// non-2xx answer is a failure.
type WebhookRemover struct {
	URL    string
	Client *http.Client
	cb     *gobreaker.CircuitBreaker[interface{}]
}

func NewWebhookRemover(url string, timeout time.Duration) *WebhookRemover {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookRemover{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		cb:     breaker.New(breaker.DefaultSettings("retraction")),
	}
}

func (w *WebhookRemover) Remove(ctx context.Context, t Token) error {
	_, err := w.cb.Execute(func() (interface{}, error) {
		return nil, w.post(ctx, t)
	})
	return err
}

func (w *WebhookRemover) post(ctx context.Context, t Token) error {
	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal retraction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build retraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("retraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("retraction request: status %d", resp.StatusCode)
	}
	return nil
}
