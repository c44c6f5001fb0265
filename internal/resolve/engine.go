// Package resolve turns a user's free-text request into either a deliverable
// catalog entry or a recorded miss.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"moviehub/internal/catalog"
	"moviehub/internal/delivery"
	"moviehub/internal/demand"
	"moviehub/internal/logging"
	"moviehub/internal/metrics"
	"moviehub/pkg/models"
)

// NotFoundMessage is what the transport shows the user on a miss.
const NotFoundMessage = "Movie not found. You can suggest it with /suggest <title>."

type Status string

const (
	StatusResolved Status = "resolved"
	StatusNotFound Status = "not_found"
)

type Outcome string

const (
	OutcomeRetracted    Outcome = "retracted"
	OutcomeInvalidToken Outcome = "invalid_token"
)

type Catalog interface {
	Titles(ctx context.Context) ([]string, error)
	FindByTitle(ctx context.Context, normalizedTitle string) (*models.CatalogEntry, error)
}

type Demand interface {
	RecordMiss(ctx context.Context, normalizedText string) (int64, error)
}

type Matcher interface {
	Match(query string, candidates []string) (string, bool)
}

// Notifier receives operator-facing events. Implementations must not block
// for long and must swallow their own failures.
type Notifier interface {
	NotifyEscalation(ctx context.Context, e models.Escalation)
	NotifySuggestion(ctx context.Context, s models.Suggestion)
}

// Observer sees every successful resolution; optional.
type Observer interface {
	RequestResolved(userID int64, entry models.CatalogEntry)
}

type Result struct {
	Status Status               `json:"status"`
	Entry  *models.CatalogEntry `json:"entry,omitempty"`
	Token  string               `json:"token,omitempty"`

	// set on StatusNotFound
	Query     string `json:"query,omitempty"`
	MissCount int64  `json:"miss_count,omitempty"`
	Escalated bool   `json:"escalated,omitempty"`
}

type RetractResult struct {
	Outcome Outcome         `json:"outcome"`
	Token   *delivery.Token `json:"delivery,omitempty"`
}

type Engine struct {
	Catalog  Catalog
	Demand   Demand
	Ledger   Ledger
	Matcher  Matcher
	Policy   demand.Policy
	Tokens   delivery.Store
	Remover  delivery.Remover
	Notifier Notifier
	Observer Observer
}

// Resolve matches rawText against the catalog. A hit bumps the entry's
// request counter, appends to the user's history and issues a delivery
// token as one unit: after an error none of the three is left behind, so
// the caller may retry. A miss is recorded as demand and may escalate.
// Not finding anything is a result; only storage failures are errors.
func (e *Engine) Resolve(ctx context.Context, userID int64, rawText string) (Result, error) {
	query := catalog.Normalize(rawText)
	if query == "" {
		metrics.ResolutionsTotal.WithLabelValues(string(StatusNotFound)).Inc()
		return Result{Status: StatusNotFound}, nil
	}

	titles, err := e.Catalog.Titles(ctx)
	if err != nil {
		return e.fail("load titles", err)
	}

	title, ok := e.Matcher.Match(query, titles)
	if !ok {
		return e.miss(ctx, userID, query)
	}

	entry, err := e.Catalog.FindByTitle(ctx, title)
	if err != nil {
		return e.fail("find entry", err)
	}
	if entry == nil {
		return e.fail("find entry", catalog.ErrEntryNotFound)
	}

	tok := delivery.NewToken(userID, entry.ID, entry.ContentRef)
	issued := false
	count, err := e.Ledger.RecordResolution(ctx, userID, entry.ID, func() error {
		if err := e.Tokens.Put(ctx, tok); err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		issued = true
		return nil
	})
	if err != nil {
		if issued {
			// the commit failed after the token went out
			if _, rerr := e.Tokens.Revoke(context.WithoutCancel(ctx), tok.ID); rerr != nil {
				logging.Warn().Err(rerr).Str("token", tok.ID).Msg("revoke token after failed commit")
			}
		}
		return e.fail("record resolution", err)
	}
	entry.RequestCount = count

	metrics.ResolutionsTotal.WithLabelValues(string(StatusResolved)).Inc()
	logging.Debug().Int64("user_id", userID).Int64("entry_id", entry.ID).Str("query", query).
		Int64("request_count", count).Msg("request resolved")
	if e.Observer != nil {
		e.Observer.RequestResolved(userID, *entry)
	}

	return Result{Status: StatusResolved, Entry: entry, Token: tok.ID}, nil
}

func (e *Engine) miss(ctx context.Context, userID int64, query string) (Result, error) {
	count, err := e.Demand.RecordMiss(ctx, query)
	if err != nil {
		return e.fail("record miss", err)
	}

	res := Result{Status: StatusNotFound, Query: query, MissCount: count}
	if e.Policy.ShouldEscalate(count) {
		res.Escalated = true
		metrics.EscalationsTotal.Inc()
		if e.Notifier != nil {
			e.Notifier.NotifyEscalation(ctx, models.Escalation{Text: query, MissCount: count, At: time.Now().UTC()})
		}
	}

	metrics.ResolutionsTotal.WithLabelValues(string(StatusNotFound)).Inc()
	logging.Info().Int64("user_id", userID).Str("query", query).Int64("miss_count", count).
		Bool("escalated", res.Escalated).Msg("request not found")
	return res, nil
}

func (e *Engine) fail(op string, err error) (Result, error) {
	metrics.ResolutionsTotal.WithLabelValues("error").Inc()
	logging.Error().Err(err).Str("op", op).Msg("resolution failed")
	return Result{}, transient(op, err)
}

// Retract consumes the token and asks the transport to remove the delivered
// message. The token is spent before the removal is attempted, so a failed
// removal is reported but cannot be retried with the same token.
func (e *Engine) Retract(ctx context.Context, token string) (RetractResult, error) {
	tok, err := e.Tokens.Consume(ctx, token)
	if err != nil {
		metrics.RetractionsTotal.WithLabelValues("error").Inc()
		return RetractResult{}, transient("consume token", err)
	}
	if tok == nil {
		metrics.RetractionsTotal.WithLabelValues(string(OutcomeInvalidToken)).Inc()
		return RetractResult{Outcome: OutcomeInvalidToken}, nil
	}

	if e.Remover != nil {
		if err := e.Remover.Remove(ctx, *tok); err != nil {
			metrics.RetractionsTotal.WithLabelValues("error").Inc()
			logging.Warn().Err(err).Str("token", tok.ID).Int64("user_id", tok.UserID).Msg("retraction failed after token consumed")
			return RetractResult{}, transient("remove delivery", err)
		}
	}

	metrics.RetractionsTotal.WithLabelValues(string(OutcomeRetracted)).Inc()
	logging.Debug().Str("token", tok.ID).Int64("user_id", tok.UserID).Msg("delivery retracted")
	return RetractResult{Outcome: OutcomeRetracted, Token: tok}, nil
}

// Confirm records the transport's delivery outcome. A successful delivery
// keeps the token retractable and remembers the message ref; a failed one
// revokes it. Counters and history are left as Resolve wrote them.
func (e *Engine) Confirm(ctx context.Context, token, deliveredRef string, ok bool) (bool, error) {
	var (
		found bool
		err   error
	)
	if ok {
		found, err = e.Tokens.Attach(ctx, token, deliveredRef)
	} else {
		found, err = e.Tokens.Revoke(ctx, token)
	}
	if err != nil {
		return false, transient("confirm delivery", err)
	}
	return found, nil
}

// Suggest forwards a user's title suggestion to the operators.
func (e *Engine) Suggest(ctx context.Context, userID int64, userName, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptySuggestion
	}
	if e.Notifier != nil {
		e.Notifier.NotifySuggestion(ctx, models.Suggestion{
			UserID:   userID,
			UserName: strings.TrimSpace(userName),
			Text:     text,
			At:       time.Now().UTC(),
		})
	}
	logging.Info().Int64("user_id", userID).Str("text", text).Msg("suggestion forwarded")
	return nil
}

// IsTransient reports whether err came from a failed storage or transport step.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
