// Package ranking answers "what is popular" and "what should this user
// watch next" from request counters and history.
package ranking

import (
	"context"
	"fmt"

	"moviehub/pkg/models"
)

const (
	DefaultTopN       = 10
	DefaultPoolSize   = 10
	DefaultResultSize = 3

	// MaxTopN caps TopRequested like the catalog list endpoints.
	MaxTopN = 100
)

type Popularity interface {
	TopByRequests(ctx context.Context, n int) ([]models.CatalogEntry, error)
}

type Seen interface {
	SeenEntries(ctx context.Context, userID int64) (map[int64]struct{}, error)
}

type Engine struct {
	Catalog Popularity
	History Seen
}

func NewEngine(catalog Popularity, history Seen) *Engine {
	return &Engine{Catalog: catalog, History: history}
}

func (e *Engine) TopRequested(ctx context.Context, n int) ([]models.CatalogEntry, error) {
	if n <= 0 || n > MaxTopN {
		n = DefaultTopN
	}
	out, err := e.Catalog.TopByRequests(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top requested: %w", err)
	}
	return out, nil
}

// Recommend takes the poolSize most requested entries, drops those the user
// has already been served, and returns up to resultSize of the rest in
// popularity order. It does not reach past the pool to fill the result.
func (e *Engine) Recommend(ctx context.Context, userID int64, poolSize, resultSize int) ([]models.CatalogEntry, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if resultSize <= 0 {
		resultSize = DefaultResultSize
	}

	pool, err := e.Catalog.TopByRequests(ctx, poolSize)
	if err != nil {
		return nil, fmt.Errorf("recommend pool: %w", err)
	}
	seen, err := e.History.SeenEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("recommend seen: %w", err)
	}

	out := make([]models.CatalogEntry, 0, resultSize)
	for _, entry := range pool {
		if _, ok := seen[entry.ID]; ok {
			continue
		}
		out = append(out, entry)
		if len(out) == resultSize {
			break
		}
	}
	return out, nil
}
