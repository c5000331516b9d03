package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"news-extractor/internal/scraper"
)

// Article is a scraped record as it is persisted.
type Article struct {
	URL       string
	Medium    string
	Title     string
	Published *time.Time
	Payload   []byte // record JSON
	CheckSum  string // SHA256 hex of the record content
	RunID     uuid.UUID
	ScrapedAt time.Time
}

// NewArticle flattens a record for storage. Title and Published are lifted
// from the "title" and "published" fields when they have the right type.
func NewArticle(rec *scraper.Record, checkSum string, runID uuid.UUID, scrapedAt time.Time) (*Article, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record %s: %w", rec.URL, err)
	}

	a := &Article{
		URL:       rec.URL,
		Medium:    rec.Medium,
		Payload:   payload,
		CheckSum:  checkSum,
		RunID:     runID,
		ScrapedAt: scrapedAt.UTC(),
	}
	if v, ok := rec.Get("title"); ok {
		if s, ok := v.(string); ok {
			a.Title = s
		}
	}
	if v, ok := rec.Get("published"); ok {
		if t, ok := v.(time.Time); ok && !t.IsZero() {
			utc := t.UTC()
			a.Published = &utc
		}
	}
	return a, nil
}

// Repository stores articles keyed by URL.
type Repository interface {
	// UpsertArticle inserts or updates an article, returns (isNew, isUpdated, error).
	// An existing row with the same checksum is left alone and reported as neither.
	UpsertArticle(ctx context.Context, article *Article) (isNew bool, isUpdated bool, err error)

	ExistsByURL(ctx context.Context, url string) (bool, error)

	CountByMedium(ctx context.Context, medium string) (int, error)

	Close() error
}
