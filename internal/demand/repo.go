package demand

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"moviehub/pkg/models"
)

var ErrEmptyQuery = errors.New("demand: empty query")

// Repo counts unmet queries, keyed by the literal normalized text. Near
// duplicates ("inceptoin", "inseption") are tracked separately.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// RecordMiss inserts the query at count 1 or bumps an existing row, and
// returns the count after this miss.
func (r *Repo) RecordMiss(ctx context.Context, normalizedText string) (int64, error) {
	if normalizedText == "" {
		return 0, ErrEmptyQuery
	}
	var count int64
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO missing_queries (normalized_text, miss_count, last_seen_at)
		VALUES (?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(normalized_text) DO UPDATE SET
			miss_count = miss_count + 1,
			last_seen_at = CURRENT_TIMESTAMP
		RETURNING miss_count
	`, normalizedText).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("record miss: %w", err)
	}
	return count, nil
}

func (r *Repo) Get(ctx context.Context, normalizedText string) (*models.MissingQuery, error) {
	var q models.MissingQuery
	err := r.DB.QueryRowContext(ctx, `
		SELECT normalized_text, miss_count, last_seen_at
		FROM missing_queries
		WHERE normalized_text = ?
	`, normalizedText).Scan(&q.NormalizedText, &q.MissCount, &q.LastSeenAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get missing query: %w", err)
	}
	return &q, nil
}

// List returns the most-missed queries first.
func (r *Repo) List(ctx context.Context, limit int) ([]models.MissingQuery, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT normalized_text, miss_count, last_seen_at
		FROM missing_queries
		ORDER BY miss_count DESC, last_seen_at DESC, normalized_text ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list missing queries: %w", err)
	}
	defer rows.Close()

	out := make([]models.MissingQuery, 0, limit)
	for rows.Next() {
		var q models.MissingQuery
		if err := rows.Scan(&q.NormalizedText, &q.MissCount, &q.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan missing query: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
