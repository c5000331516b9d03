package checksum

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"news-extractor/internal/scraper"
)

func record(title string) *scraper.Record {
	return &scraper.Record{
		URL:    "https://example.com/news/123",
		Medium: "oshcity",
		Fields: map[string]scraper.Field{
			"title":     {Value: title},
			"published": {Value: time.Date(2025, 10, 18, 0, 0, 0, 0, time.UTC)},
			"tags":      {Value: []string{"город", "дороги"}},
			"teaser":    {Value: nil},
		},
	}
}

func TestRecordHash(t *testing.T) {
	gen := NewGenerator()

	hash1 := gen.RecordHash(record("Тестовая новость"))
	hash2 := gen.RecordHash(record("Тестовая новость"))

	assert.Equal(t, hash1, hash2, "deterministic regardless of map order")
	assert.Len(t, hash1, 64)
	assert.NotEqual(t, hash1, gen.RecordHash(record("Другой заголовок")))

	moved := record("Тестовая новость")
	moved.URL = "https://example.com/news/124"
	assert.NotEqual(t, hash1, gen.RecordHash(moved))
}

func TestRecordHashIgnoresFailedFields(t *testing.T) {
	gen := NewGenerator()

	withFailure := record("Тестовая новость")
	withFailure.Fields["author"] = scraper.Field{Err: errors.New("locator failed")}

	assert.Equal(t, gen.RecordHash(record("Тестовая новость")), gen.RecordHash(withFailure))
}

func TestVerifyRecordHash(t *testing.T) {
	gen := NewGenerator()
	hash := gen.RecordHash(record("Тестовая новость"))

	assert.True(t, gen.VerifyRecordHash(hash, record("Тестовая новость")))
	assert.False(t, gen.VerifyRecordHash(hash, record("Другой заголовок")))
}
