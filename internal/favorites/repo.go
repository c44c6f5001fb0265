package favorites

import (
	"context"
	"database/sql"
	"fmt"

	"moviehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Add marks entryID as a favorite of userID. A pair that already exists is
// left alone and reported as added=false.
func (r *Repo) Add(ctx context.Context, userID, entryID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT OR IGNORE INTO favorites (user_id, entry_id, created_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, userID, entryID)
	if err != nil {
		return false, fmt.Errorf("insert favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert favorite rows: %w", err)
	}
	return n == 1, nil
}

func (r *Repo) Remove(ctx context.Context, userID, entryID int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM favorites
		WHERE user_id = ? AND entry_id = ?
	`, userID, entryID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete favorite rows: %w", err)
	}
	return n > 0, nil
}

// List returns the user's favorite entries in the order they were added.
func (r *Repo) List(ctx context.Context, userID int64) ([]models.CatalogEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT c.id, c.normalized_title, c.content_ref, c.request_count, c.created_at
		FROM favorites f
		JOIN catalog_entries c ON c.id = f.entry_id
		WHERE f.user_id = ?
		ORDER BY f.seq ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	out := []models.CatalogEntry{}
	for rows.Next() {
		var e models.CatalogEntry
		if err := rows.Scan(&e.ID, &e.NormalizedTitle, &e.ContentRef, &e.RequestCount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
