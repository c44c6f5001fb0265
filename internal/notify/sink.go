// Package notify delivers operator-facing events: unmet-demand escalations
// and user suggestions.
package notify

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"moviehub/internal/metrics"
	"moviehub/pkg/models"
)

const (
	TypeEscalation = "escalation"
	TypeSuggestion = "suggestion"
)

// Sink receives operator events. Sinks are fire-and-forget: they log their
// own failures and never report them to the caller.
type Sink interface {
	NotifyEscalation(ctx context.Context, e models.Escalation)
	NotifySuggestion(ctx context.Context, s models.Suggestion)
}

// Message is the wire form shared by the UDP and webhook sinks.
type Message struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	MissCount int64  `json:"miss_count,omitempty"`
	UserID    int64  `json:"user_id,omitempty"`
	UserName  string `json:"user_name,omitempty"`
	Message   string `json:"message"`
	At        string `json:"at"`
}

func EscalationMessage(e models.Escalation) Message {
	return Message{
		Type:      TypeEscalation,
		Text:      e.Text,
		MissCount: e.MissCount,
		Message:   fmt.Sprintf("Repeated search for a missing movie: '%s' (count: %d)", e.Text, e.MissCount),
		At:        e.At.UTC().Format(time.RFC3339),
	}
}

func SuggestionMessage(s models.Suggestion) Message {
	sender := s.UserName
	if sender == "" {
		sender = strconv.FormatInt(s.UserID, 10)
	}
	return Message{
		Type:     TypeSuggestion,
		Text:     s.Text,
		UserID:   s.UserID,
		UserName: s.UserName,
		Message:  fmt.Sprintf("New suggestion from %s:\n%s", sender, s.Text),
		At:       s.At.UTC().Format(time.RFC3339),
	}
}

// Multi fans each event out to every sink in order.
type Multi []Sink

func (m Multi) NotifyEscalation(ctx context.Context, e models.Escalation) {
	for _, s := range m {
		s.NotifyEscalation(ctx, e)
	}
}

func (m Multi) NotifySuggestion(ctx context.Context, s models.Suggestion) {
	for _, sink := range m {
		sink.NotifySuggestion(ctx, s)
	}
}

func record(sink string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.NotificationsTotal.WithLabelValues(sink, result).Inc()
}
