package sync

import (
	"context"
	"time"

	"moviehub/pkg/models"
)

// HubSink adapts the hub to the event producers: catalog ingestion,
// resolutions, escalations and suggestions all land on the operator feed.
type HubSink struct {
	Hub *Hub
}

func NewHubSink(h *Hub) HubSink { return HubSink{Hub: h} }

func (s HubSink) PublishIngested(entry models.CatalogEntry) {
	s.Hub.Broadcast(Event{Type: EventCatalogIngested, At: time.Now().UTC(), Entry: &entry})
}

func (s HubSink) RequestResolved(userID int64, entry models.CatalogEntry) {
	s.Hub.Broadcast(Event{Type: EventRequestResolved, At: time.Now().UTC(), UserID: userID, Entry: &entry})
}

func (s HubSink) NotifyEscalation(_ context.Context, e models.Escalation) {
	s.Hub.Broadcast(Event{Type: EventDemandEscalated, At: e.At, Escalation: &e})
}

func (s HubSink) NotifySuggestion(_ context.Context, sg models.Suggestion) {
	s.Hub.Broadcast(Event{Type: EventSuggestion, At: sg.At, UserID: sg.UserID, Suggestion: &sg})
}
