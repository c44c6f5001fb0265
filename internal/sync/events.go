package sync

import (
	"time"

	"moviehub/pkg/models"
)

const (
	EventCatalogIngested = "catalog.ingested"
	EventRequestResolved = "request.resolved"
	EventDemandEscalated = "demand.escalated"
	EventSuggestion      = "suggestion"
	EventWelcome         = "welcome"
)

// Event is one line on the operator feed.
type Event struct {
	Type       string               `json:"type"`
	At         time.Time            `json:"at"`
	UserID     int64                `json:"user_id,omitempty"`
	Entry      *models.CatalogEntry `json:"entry,omitempty"`
	Escalation *models.Escalation   `json:"escalation,omitempty"`
	Suggestion *models.Suggestion   `json:"suggestion,omitempty"`
}
