package main

import (
	"context"
	"encoding/csv"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"moviehub/internal/catalog"
	"moviehub/internal/demand"
	"moviehub/internal/logging"
	"moviehub/pkg/database"
	"moviehub/pkg/utils"
)

const pageSize = 100

func main() {
	catalogOut := flag.String("catalog", "data/catalog.csv", "output CSV path for the catalog")
	missingOut := flag.String("missing", "data/missing.csv", "output CSV path for missing titles, empty to skip")
	dbPath := flag.String("db", "", "database path, defaults to the configured one")
	flag.Parse()

	cfg, err := utils.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.Logging.Logging())
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.OpenAndMigrate(database.Config{Path: cfg.Database.Path})
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("open database")
	}
	defer db.Close()

	n, err := writeFile(*catalogOut, func(w io.Writer) (int, error) {
		return exportCatalog(ctx, catalog.NewRepo(db), w)
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("export catalog")
	}
	logging.Info().Int("rows", n).Str("path", *catalogOut).Msg("catalog exported")

	if *missingOut == "" {
		return
	}
	n, err = writeFile(*missingOut, func(w io.Writer) (int, error) {
		return exportMissing(ctx, demand.NewRepo(db), w)
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("export missing titles")
	}
	logging.Info().Int("rows", n).Str("path", *missingOut).Msg("missing titles exported")
}

func writeFile(path string, fn func(io.Writer) (int, error)) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := fn(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// exportCatalog writes title,content_ref first so the output feeds straight
// back into import-csv.
func exportCatalog(ctx context.Context, repo *catalog.Repo, out io.Writer) (int, error) {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"title", "content_ref", "id", "request_count", "created_at"}); err != nil {
		return 0, err
	}

	rows := 0
	for offset := 0; ; offset += pageSize {
		items, err := repo.List(ctx, catalog.ListQuery{Limit: pageSize, Offset: offset})
		if err != nil {
			return rows, err
		}
		for _, e := range items {
			rec := []string{
				e.NormalizedTitle,
				e.ContentRef,
				strconv.FormatInt(e.ID, 10),
				strconv.FormatInt(e.RequestCount, 10),
				e.CreatedAt.UTC().Format(time.RFC3339),
			}
			if err := w.Write(rec); err != nil {
				return rows, err
			}
			rows++
		}
		if len(items) < pageSize {
			break
		}
	}

	w.Flush()
	return rows, w.Error()
}

func exportMissing(ctx context.Context, repo *demand.Repo, out io.Writer) (int, error) {
	items, err := repo.List(ctx, 200)
	if err != nil {
		return 0, err
	}

	w := csv.NewWriter(out)
	if err := w.Write([]string{"text", "miss_count", "last_seen_at"}); err != nil {
		return 0, err
	}
	for _, m := range items {
		if err := w.Write([]string{
			m.NormalizedText,
			strconv.FormatInt(m.MissCount, 10),
			m.LastSeenAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return 0, err
		}
	}
	w.Flush()
	return len(items), w.Error()
}
