// Package delivery tracks what was handed to the chat transport so a user can
// take it back exactly once.
package delivery

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Token identifies one delivered answer. Its ID is opaque to the transport,
// which echoes it back on the retract path.
type Token struct {
	ID           string    `json:"token"`
	UserID       int64     `json:"user_id"`
	EntryID      int64     `json:"entry_id"`
	ContentRef   string    `json:"content_ref"`
	DeliveredRef string    `json:"delivered_ref,omitempty"`
	IssuedAt     time.Time `json:"issued_at"`
}

func NewToken(userID, entryID int64, contentRef string) Token {
	return Token{
		ID:         uuid.NewString(),
		UserID:     userID,
		EntryID:    entryID,
		ContentRef: contentRef,
		IssuedAt:   time.Now().UTC(),
	}
}

// Store holds outstanding tokens. Consume is the only way a token leaves the
// store for retraction, and it succeeds at most once per token even under
// concurrent callers.
type Store interface {
	Put(ctx context.Context, t Token) error
	// Consume removes and returns the token; nil, nil when unknown, expired
	// or already consumed.
	Consume(ctx context.Context, id string) (*Token, error)
	// Attach records the transport's message ref on an outstanding token.
	Attach(ctx context.Context, id, deliveredRef string) (bool, error)
	// Revoke drops a token without retracting anything.
	Revoke(ctx context.Context, id string) (bool, error)
}
