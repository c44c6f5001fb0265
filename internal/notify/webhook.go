package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"moviehub/internal/logging"
	"moviehub/pkg/models"
)

// Webhook POSTs each event as JSON to URL in the background.
type Webhook struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration

	wg sync.WaitGroup
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		URL:     url,
		Client:  &http.Client{Timeout: timeout},
		Timeout: timeout,
	}
}

func (w *Webhook) NotifyEscalation(ctx context.Context, e models.Escalation) {
	w.send(ctx, EscalationMessage(e))
}

func (w *Webhook) NotifySuggestion(ctx context.Context, s models.Suggestion) {
	w.send(ctx, SuggestionMessage(s))
}

// Wait blocks until in-flight deliveries finish.
func (w *Webhook) Wait() { w.wg.Wait() }

func (w *Webhook) send(ctx context.Context, msg Message) {
	// outlive the request that triggered the event
	ctx = context.WithoutCancel(ctx)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, w.Timeout)
		defer cancel()

		err := w.post(ctx, msg)
		record("webhook", err)
		if err != nil {
			logging.Warn().Err(err).Str("type", msg.Type).Msg("webhook notification failed")
		}
	}()
}

func (w *Webhook) post(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "moviehub-notify/1.0")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification rejected: status %d", resp.StatusCode)
	}
	return nil
}
