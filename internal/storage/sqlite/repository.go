// Package sqlite is a file-backed article store for single-host runs.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"news-extractor/internal/observability"
	"news-extractor/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	url        TEXT PRIMARY KEY,
	medium     TEXT NOT NULL,
	title      TEXT,
	published  TEXT,
	payload    TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	run_id     TEXT NOT NULL,
	scraped_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_articles_medium ON articles (medium);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dbPath string, commandTimeoutMS int, logger *observability.Logger) (*Repository, error) {
	if dbPath != ":memory:" && !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Repository{
		db:             db,
		commandTimeout: time.Duration(commandTimeoutMS) * time.Millisecond,
		logger:         logger,
	}, nil
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.commandTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.commandTimeout)
}

func (r *Repository) UpsertArticle(ctx context.Context, a *storage.Article) (isNew bool, isUpdated bool, err error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				r.logger.Error("Failed to roll back", "error", rbErr.Error())
			}
		}
	}()

	var existing string
	err = tx.QueryRowContext(ctx, `SELECT checksum FROM articles WHERE url = ?`, a.URL).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO articles (url, medium, title, published, payload, checksum, run_id, scraped_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.URL, a.Medium, a.Title, formatTime(a.Published), string(a.Payload),
			a.CheckSum, a.RunID.String(), formatTime(&a.ScrapedAt),
		)
		if err != nil {
			return false, false, fmt.Errorf("failed to insert article: %w", err)
		}
		isNew = true
	case err != nil:
		return false, false, fmt.Errorf("failed to query database: %w", err)
	case existing == a.CheckSum:
		// unchanged
	default:
		_, err = tx.ExecContext(ctx, `
			UPDATE articles
			SET medium = ?, title = ?, published = ?, payload = ?, checksum = ?, run_id = ?, scraped_at = ?
			WHERE url = ?`,
			a.Medium, a.Title, formatTime(a.Published), string(a.Payload),
			a.CheckSum, a.RunID.String(), formatTime(&a.ScrapedAt), a.URL,
		)
		if err != nil {
			return false, false, fmt.Errorf("failed to update article: %w", err)
		}
		isUpdated = true
	}

	if err = tx.Commit(); err != nil {
		return false, false, fmt.Errorf("failed to commit: %w", err)
	}
	return isNew, isUpdated, nil
}

func (r *Repository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE url = ?`, url).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to query database: %w", err)
	}
	return count > 0, nil
}

func (r *Repository) CountByMedium(ctx context.Context, medium string) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE medium = ?`, medium).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}
	return count, nil
}

// Published returns the stored publication time of an article, if any.
func (r *Repository) Published(ctx context.Context, url string) (*time.Time, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var published sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT published FROM articles WHERE url = ?`, url).Scan(&published)
	if err != nil {
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	if !published.Valid {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, published.String)
	if err != nil {
		return nil, fmt.Errorf("bad published value %q: %w", published.String, err)
	}
	return &t, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
