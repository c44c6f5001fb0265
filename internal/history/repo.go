package history

import (
	"context"
	"database/sql"
	"fmt"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

// Repo is the append-only request ledger. Every successful resolution adds
// one row, repeats included.
type Repo struct {
	DB *sql.DB
	tx *sql.Tx
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// WithTx returns a view of the repo whose appends run inside tx.
func (r *Repo) WithTx(tx *sql.Tx) *Repo {
	return &Repo{DB: r.DB, tx: tx}
}

func (r *Repo) conn() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.DB
}

func (r *Repo) Log(ctx context.Context, userID, entryID int64) error {
	_, err := r.conn().ExecContext(ctx, `
		INSERT INTO history_records (user_id, entry_id, requested_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
	`, userID, entryID)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

// SeenEntries is the set of entry ids the user has ever been served.
func (r *Repo) SeenEntries(ctx context.Context, userID int64) (map[int64]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT DISTINCT entry_id FROM history_records WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("seen entries: %w", err)
	}
	defer rows.Close()

	seen := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan seen entry: %w", err)
		}
		seen[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows seen entries: %w", err)
	}
	return seen, nil
}

// List returns the user's records newest first, with the total row count.
func (r *Repo) List(ctx context.Context, userID int64, limit, offset int) ([]models.HistoryRecord, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM history_records WHERE user_id = ?
	`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, entry_id, requested_at
		FROM history_records
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]models.HistoryRecord, 0, limit)
	for rows.Next() {
		var rec models.HistoryRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.EntryID, &rec.RequestedAt); err != nil {
			return nil, 0, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows history: %w", err)
	}
	return out, total, nil
}
