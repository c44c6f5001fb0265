// Package gate decides whether an end user may use the bot at all.
package gate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"moviehub/internal/breaker"
	"moviehub/internal/logging"
	"moviehub/internal/metrics"
)

// Checker answers whether userID is a member of the gated channel. It must
// never fail open: any error is a denial.
type Checker interface {
	IsPermitted(ctx context.Context, userID int64) bool
}

// AllowAll is used when membership gating is disabled.
type AllowAll struct{}

func (AllowAll) IsPermitted(context.Context, int64) bool { return true }

// permittedStatuses are the membership states that pass the gate.
var permittedStatuses = map[string]bool{
	"member":        true,
	"creator":       true,
	"administrator": true,
}

// HTTPChecker asks the chat transport for a user's membership status:
//
//	GET <URL>?user_id=<id>  ->  {"status": "member"}
type HTTPChecker struct {
	URL    string
	Client *http.Client
	cb     *gobreaker.CircuitBreaker[interface{}]
}

func NewHTTPChecker(membershipURL string, timeout time.Duration) *HTTPChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		URL:    membershipURL,
		Client: &http.Client{Timeout: timeout},
		cb:     breaker.New(breaker.DefaultSettings("membership")),
	}
}

type membershipResp struct {
	Status string `json:"status"`
}

func (h *HTTPChecker) IsPermitted(ctx context.Context, userID int64) bool {
	res, err := h.cb.Execute(func() (interface{}, error) {
		return h.fetchStatus(ctx, userID)
	})
	if err != nil {
		metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
		logging.Warn().Err(err).Int64("user_id", userID).Msg("membership check failed, denying")
		return false
	}
	status, _ := res.(string)
	if permittedStatuses[status] {
		metrics.GateDecisionsTotal.WithLabelValues("allow").Inc()
		return true
	}
	metrics.GateDecisionsTotal.WithLabelValues("deny").Inc()
	return false
}

func (h *HTTPChecker) fetchStatus(ctx context.Context, userID int64) (string, error) {
	u, err := url.Parse(h.URL)
	if err != nil {
		return "", fmt.Errorf("parse membership url: %w", err)
	}
	q := u.Query()
	q.Set("user_id", strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build membership request: %w", err)
	}
	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("membership request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("membership request: status %d", resp.StatusCode)
	}
	var body membershipResp
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode membership response: %w", err)
	}
	return body.Status, nil
}
