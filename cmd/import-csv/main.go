package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"moviehub/internal/catalog"
	"moviehub/internal/logging"
	"moviehub/pkg/database"
	"moviehub/pkg/utils"
)

type importStats struct {
	Created    int
	Duplicates int
	Skipped    int
}

func main() {
	in := flag.String("catalog", "data/catalog.csv", "input CSV path (title,content_ref)")
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

	f, err := os.Open(*in)
	if err != nil {
		logging.Fatal().Err(err).Str("path", *in).Msg("open csv")
	}
	defer f.Close()

	stats, err := importCatalog(ctx, catalog.NewRepo(db), f)
	if err != nil {
		logging.Fatal().Err(err).Msg("import catalog")
	}
	logging.Info().
		Int("created", stats.Created).
		Int("duplicates", stats.Duplicates).
		Int("skipped", stats.Skipped).
		Str("path", *in).
		Msg("catalog imported")
}

// importCatalog ingests every row through the same path the transport
// uses, so titles are normalized and duplicates keep their first reference.
func importCatalog(ctx context.Context, repo *catalog.Repo, src io.Reader) (importStats, error) {
	var stats importStats

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return stats, fmt.Errorf("read header: %w", err)
	}
	if _, ok := header["title"]; !ok {
		return stats, errors.New("missing title column")
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}

		title := valueAt(header, row, "title")
		ref := valueAt(header, row, "content_ref")
		if title == "" || ref == "" {
			stats.Skipped++
			continue
		}

		_, created, err := repo.Ingest(ctx, title, ref)
		if err != nil {
			if errors.Is(err, catalog.ErrEmptyTitle) {
				stats.Skipped++
				continue
			}
			return stats, err
		}
		if created {
			stats.Created++
		} else {
			stats.Duplicates++
		}
	}
	return stats, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
