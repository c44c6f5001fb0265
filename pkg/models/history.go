package models

import "time"

type HistoryRecord struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	EntryID     int64     `json:"entry_id"`
	RequestedAt time.Time `json:"requested_at"`
}

type FavoriteRecord struct {
	UserID    int64     `json:"user_id"`
	EntryID   int64     `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
}
