package notify

import (
	"context"

	"moviehub/internal/logging"
	"moviehub/pkg/models"
)

// LogSink writes events to the application log; the fallback when no other
// sink is configured.
type LogSink struct{}

func (LogSink) NotifyEscalation(_ context.Context, e models.Escalation) {
	logging.Warn().Str("text", e.Text).Int64("miss_count", e.MissCount).Msg(EscalationMessage(e).Message)
}

func (LogSink) NotifySuggestion(_ context.Context, s models.Suggestion) {
	logging.Info().Int64("user_id", s.UserID).Str("text", s.Text).Msg("new suggestion")
}
