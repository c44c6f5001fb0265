package models

import "time"

// Escalation tells operators that a title keeps being asked for and is not
// in the catalog.
type Escalation struct {
	Text      string    `json:"text"`
	MissCount int64     `json:"miss_count"`
	At        time.Time `json:"at"`
}

// Suggestion is a user's free-text request to add a title.
type Suggestion struct {
	UserID   int64     `json:"user_id"`
	UserName string    `json:"user_name,omitempty"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}
