package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"moviehub/pkg/database"
	"moviehub/pkg/models"
)

var (
	ErrEmptyTitle    = errors.New("catalog: empty title")
	ErrEntryNotFound = errors.New("catalog: entry not found")
)

// Repo owns catalog entry identity and request counters. Callers pass
// pre-normalized titles to every lookup; only Ingest normalizes.
type Repo struct {
	DB *sql.DB
	tx *sql.Tx
}

type ListQuery struct {
	Q      string // substring filter on the normalized title
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// WithTx returns a view of the repo whose counter updates run inside tx.
func (r *Repo) WithTx(tx *sql.Tx) *Repo {
	return &Repo{DB: r.DB, tx: tx}
}

func (r *Repo) conn() database.Querier {
	if r.tx != nil {
		return r.tx
	}
	return r.DB
}

// Normalize is the canonical title form: trimmed and lowercased.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Ingest stores a new entry for rawTitle unless one with the same normalized
// title exists. An existing entry is returned untouched with created=false.
func (r *Repo) Ingest(ctx context.Context, rawTitle, contentRef string) (*models.CatalogEntry, bool, error) {
	title := Normalize(rawTitle)
	if title == "" {
		return nil, false, ErrEmptyTitle
	}

	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO catalog_entries (normalized_title, content_ref)
		VALUES (?, ?)
		ON CONFLICT(normalized_title) DO NOTHING
	`, title, contentRef)
	if err != nil {
		return nil, false, fmt.Errorf("insert catalog entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert catalog entry rows: %w", err)
	}

	e, err := r.FindByTitle(ctx, title)
	if err != nil {
		return nil, false, err
	}
	if e == nil {
		return nil, false, fmt.Errorf("ingest %q: %w", title, ErrEntryNotFound)
	}
	return e, n == 1, nil
}

func (r *Repo) FindByTitle(ctx context.Context, normalizedTitle string) (*models.CatalogEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, normalized_title, content_ref, request_count, created_at
		FROM catalog_entries
		WHERE normalized_title = ?
	`, normalizedTitle)
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("find by title: %w", err)
	}
	return e, nil
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.CatalogEntry, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, normalized_title, content_ref, request_count, created_at
		FROM catalog_entries
		WHERE id = ?
	`, id)
	e, err := scanEntry(row)
	if err != nil {
		return nil, fmt.Errorf("get by id: %w", err)
	}
	return e, nil
}

// Titles returns every normalized title in ingestion order.
func (r *Repo) Titles(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT normalized_title FROM catalog_entries ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list titles: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// IncrementRequests bumps the counter in a single statement and returns the
// new value, so concurrent resolutions of one entry never lose an update.
func (r *Repo) IncrementRequests(ctx context.Context, id int64) (int64, error) {
	var count int64
	err := r.conn().QueryRowContext(ctx, `
		UPDATE catalog_entries
		SET request_count = request_count + 1
		WHERE id = ?
		RETURNING request_count
	`, id).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEntryNotFound
		}
		return 0, fmt.Errorf("increment requests: %w", err)
	}
	return count, nil
}

// TopByRequests orders by request_count descending; ties keep ingestion order.
func (r *Repo) TopByRequests(ctx context.Context, n int) ([]models.CatalogEntry, error) {
	if n <= 0 {
		return []models.CatalogEntry{}, nil
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, normalized_title, content_ref, request_count, created_at
		FROM catalog_entries
		ORDER BY request_count DESC, id ASC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("top by requests: %w", err)
	}
	return scanEntries(rows, n)
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.CatalogEntry, error) {
	sqlStr, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	return scanEntries(rows, q.Limit)
}

// buildListSQL builds either COUNT(*) or the paged SELECT.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	sqlStr := `
		SELECT id, normalized_title, content_ref, request_count, created_at
		FROM catalog_entries
	`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM catalog_entries`
	}

	var args []any
	if kw := Normalize(q.Q); kw != "" {
		sqlStr += " WHERE normalized_title LIKE ?"
		args = append(args, "%"+kw+"%")
	}

	if !countOnly {
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		sqlStr += " ORDER BY id ASC LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.CatalogEntry, error) {
	var e models.CatalogEntry
	if err := row.Scan(&e.ID, &e.NormalizedTitle, &e.ContentRef, &e.RequestCount, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func scanEntries(rows *sql.Rows, capHint int) ([]models.CatalogEntry, error) {
	defer rows.Close()
	if capHint <= 0 || capHint > 100 {
		capHint = 20
	}
	out := make([]models.CatalogEntry, 0, capHint)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
