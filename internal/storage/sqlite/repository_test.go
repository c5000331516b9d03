package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-extractor/internal/observability"
	"news-extractor/internal/storage"
)

func newTestRepository(t *testing.T) *Repository {
	dbPath := filepath.Join(t.TempDir(), "articles.db")
	repo, err := NewRepository(dbPath, 5000, observability.NopLogger())
	require.NoError(t, err, "should create repository")
	t.Cleanup(func() { repo.Close() })
	return repo
}

func article(url, checkSum string) *storage.Article {
	published := time.Date(2025, 10, 18, 9, 0, 0, 0, time.UTC)
	return &storage.Article{
		URL:       url,
		Medium:    "oshcity",
		Title:     "Ремонт дорог",
		Published: &published,
		Payload:   []byte(`{"title":"Ремонт дорог"}`),
		CheckSum:  checkSum,
		RunID:     uuid.New(),
		ScrapedAt: time.Now(),
	}
}

func TestUpsertArticle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	isNew, isUpdated, err := repo.UpsertArticle(ctx, article("https://oshcity.kg/news/1", "aaa"))
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.False(t, isUpdated)

	isNew, isUpdated, err = repo.UpsertArticle(ctx, article("https://oshcity.kg/news/1", "aaa"))
	require.NoError(t, err)
	assert.False(t, isNew, "same checksum is a no-op")
	assert.False(t, isUpdated)

	isNew, isUpdated, err = repo.UpsertArticle(ctx, article("https://oshcity.kg/news/1", "bbb"))
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.True(t, isUpdated)

	count, err := repo.CountByMedium(ctx, "oshcity")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExistsByURL(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	exists, err := repo.ExistsByURL(ctx, "https://oshcity.kg/news/1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, _, err = repo.UpsertArticle(ctx, article("https://oshcity.kg/news/1", "aaa"))
	require.NoError(t, err)

	exists, err = repo.ExistsByURL(ctx, "https://oshcity.kg/news/1")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCountByMedium(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, url := range []string{"https://a/1", "https://a/2"} {
		_, _, err := repo.UpsertArticle(ctx, article(url, "x"))
		require.NoError(t, err)
	}
	other := article("https://b/1", "x")
	other.Medium = "kaktus"
	_, _, err := repo.UpsertArticle(ctx, other)
	require.NoError(t, err)

	count, err := repo.CountByMedium(ctx, "oshcity")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = repo.CountByMedium(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestPublished(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	withDate := article("https://a/1", "x")
	noDate := article("https://a/2", "x")
	noDate.Published = nil
	for _, a := range []*storage.Article{withDate, noDate} {
		_, _, err := repo.UpsertArticle(ctx, a)
		require.NoError(t, err)
	}

	got, err := repo.Published(ctx, "https://a/1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, withDate.Published.Equal(*got))

	got, err = repo.Published(ctx, "https://a/2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewRepositoryCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "articles.db")
	repo, err := NewRepository(dbPath, 0, observability.NopLogger())
	require.NoError(t, err)
	defer repo.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "articles.db")

	repo, err := NewRepository(dbPath, 0, observability.NopLogger())
	require.NoError(t, err)
	_, _, err = repo.UpsertArticle(context.Background(), article("https://a/1", "x"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = NewRepository(dbPath, 0, observability.NopLogger())
	require.NoError(t, err)
	defer repo.Close()

	exists, err := repo.ExistsByURL(context.Background(), "https://a/1")
	require.NoError(t, err)
	assert.True(t, exists)
}

var _ storage.Repository = (*Repository)(nil)
