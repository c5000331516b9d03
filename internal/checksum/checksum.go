package checksum

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"news-extractor/internal/scraper"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// RecordHash returns the SHA256 hex digest of a record's content:
// url|medium|name=value|... over successfully extracted fields in name
// order, values JSON encoded. Failed fields are left out so that a flaky
// field does not look like a content change.
func (g *Generator) RecordHash(rec *scraper.Record) string {
	values := rec.Values()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+2)
	parts = append(parts, rec.URL, rec.Medium)
	for _, name := range names {
		encoded, err := json.Marshal(values[name])
		if err != nil {
			encoded = []byte(fmt.Sprintf("%v", values[name]))
		}
		parts = append(parts, name+"="+string(encoded))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return fmt.Sprintf("%x", hash)
}

// VerifyRecordHash reports whether rec still hashes to expectedHash.
func (g *Generator) VerifyRecordHash(expectedHash string, rec *scraper.Record) bool {
	return g.RecordHash(rec) == expectedHash
}
