package resolve

import (
	"context"
	"database/sql"

	"moviehub/internal/catalog"
	"moviehub/internal/history"
	"moviehub/pkg/database"
)

// Ledger records a successful resolution. The request counter and the
// history row commit together; issue runs before the commit and a non-nil
// error from it rolls both back.
type Ledger interface {
	RecordResolution(ctx context.Context, userID, entryID int64, issue func() error) (int64, error)
}

// SQLLedger is the Ledger over the catalog and history tables.
type SQLLedger struct {
	DB      *sql.DB
	Catalog *catalog.Repo
	History *history.Repo
}

func NewSQLLedger(db *sql.DB, c *catalog.Repo, h *history.Repo) *SQLLedger {
	return &SQLLedger{DB: db, Catalog: c, History: h}
}

func (l *SQLLedger) RecordResolution(ctx context.Context, userID, entryID int64, issue func() error) (int64, error) {
	var count int64
	err := database.WithTx(ctx, l.DB, func(tx *sql.Tx) error {
		n, err := l.Catalog.WithTx(tx).IncrementRequests(ctx, entryID)
		if err != nil {
			return err
		}
		if err := l.History.WithTx(tx).Log(ctx, userID, entryID); err != nil {
			return err
		}
		if issue != nil {
			if err := issue(); err != nil {
				return err
			}
		}
		count = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
