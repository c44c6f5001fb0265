package catalog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moviehub/pkg/database"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.OpenAndMigrate(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepo(db)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "inception", Normalize("  Inception \n"))
	assert.Equal(t, "the matrix", Normalize("The MATRIX"))
	assert.Equal(t, "", Normalize("   "))
}

func TestIngest_CreatesEntry(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	e, created, err := r.Ingest(ctx, "  Inception ", "42")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "inception", e.NormalizedTitle)
	assert.Equal(t, "42", e.ContentRef)
	assert.Equal(t, int64(0), e.RequestCount)
	assert.NotZero(t, e.ID)
}

func TestIngest_DuplicateIsNoOp(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	first, created, err := r.Ingest(ctx, "Inception", "42")
	require.NoError(t, err)
	require.True(t, created)

	_, err = r.IncrementRequests(ctx, first.ID)
	require.NoError(t, err)

	second, created, err := r.Ingest(ctx, "INCEPTION  ", "99")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "42", second.ContentRef, "content ref must not be overwritten")
	assert.Equal(t, int64(1), second.RequestCount, "request count must be preserved")

	titles, err := r.Titles(ctx)
	require.NoError(t, err)
	assert.Len(t, titles, 1)
}

func TestIngest_EmptyTitle(t *testing.T) {
	r := newTestRepo(t)
	_, _, err := r.Ingest(context.Background(), "   ", "1")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestFindByTitle_DoesNotRenormalize(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	_, _, err := r.Ingest(ctx, "Inception", "42")
	require.NoError(t, err)

	e, err := r.FindByTitle(ctx, "inception")
	require.NoError(t, err)
	require.NotNil(t, e)

	e, err = r.FindByTitle(ctx, "Inception")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestTitles_IngestionOrder(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	for _, title := range []string{"zodiac", "alien", "memento"} {
		_, _, err := r.Ingest(ctx, title, title)
		require.NoError(t, err)
	}

	titles, err := r.Titles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"zodiac", "alien", "memento"}, titles)
}

func TestIncrementRequests_UnknownEntry(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.IncrementRequests(context.Background(), 999)
	assert.ErrorIs(t, err, ErrEntryNotFound)
}

func TestIncrementRequests_Concurrent(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	e, _, err := r.Ingest(ctx, "Inception", "42")
	require.NoError(t, err)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.IncrementRequests(ctx, e.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := r.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.RequestCount)
}

func TestTopByRequests_OrderAndTies(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()

	ids := map[string]int64{}
	for _, title := range []string{"a", "b", "c", "d"} {
		e, _, err := r.Ingest(ctx, title, title)
		require.NoError(t, err)
		ids[title] = e.ID
	}
	bump := func(title string, times int) {
		for i := 0; i < times; i++ {
			_, err := r.IncrementRequests(ctx, ids[title])
			require.NoError(t, err)
		}
	}
	bump("c", 3)
	bump("b", 1)
	bump("d", 1)

	top, err := r.TopByRequests(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "c", top[0].NormalizedTitle)
	assert.Equal(t, "b", top[1].NormalizedTitle, "tie broken by ingestion order")
	assert.Equal(t, "d", top[2].NormalizedTitle)

	none, err := r.TopByRequests(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListAndCount(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	for _, title := range []string{"the matrix", "matrix reloaded", "alien"} {
		_, _, err := r.Ingest(ctx, title, title)
		require.NoError(t, err)
	}

	total, err := r.Count(ctx, ListQuery{Q: "Matrix"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	items, err := r.List(ctx, ListQuery{Q: "matrix", Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "the matrix", items[0].NormalizedTitle)
}
