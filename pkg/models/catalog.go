package models

import "time"

// CatalogEntry is one deliverable movie. NormalizedTitle is unique and
// RequestCount only ever grows.
type CatalogEntry struct {
	ID              int64     `json:"id"`
	NormalizedTitle string    `json:"title"`
	ContentRef      string    `json:"content_ref"`
	RequestCount    int64     `json:"request_count"`
	CreatedAt       time.Time `json:"created_at"`
}
