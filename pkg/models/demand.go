package models

import "time"

type MissingQuery struct {
	NormalizedText string    `json:"text"`
	MissCount      int64     `json:"miss_count"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}
