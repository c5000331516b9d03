package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"news-extractor/internal/dom"
	"news-extractor/internal/scraper"
)

// Time parses the first node as a timestamp with layout (RFC3339 when empty).
// The value is read from attr when the node has it, otherwise from the
// node's text. An absent node yields nil; an unparseable value is an error.
func Time(attr, layout string) scraper.Transform {
	if attr == "" {
		attr = "datetime"
	}
	if layout == "" {
		layout = time.RFC3339
	}
	return func(m scraper.Match) (any, error) {
		n, ok := m.Node()
		if !ok {
			return nil, nil
		}
		raw := dateSource(n, attr)
		if raw == "" {
			return nil, nil
		}
		t, err := time.Parse(layout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", raw, err)
		}
		return t, nil
	}
}

// Date parses free-form dates ("Oct 18, 2024", "2024-10-18 14:30", unix
// seconds...) from the datetime or content attribute, or from the text.
func Date(m scraper.Match) (any, error) {
	n, ok := m.Node()
	if !ok {
		return nil, nil
	}
	raw := dateSource(n, "datetime", "content")
	if raw == "" {
		return nil, nil
	}
	t, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

func dateSource(n dom.Node, attrs ...string) string {
	for _, a := range attrs {
		if v, ok := n.Attr(a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return strings.TrimSpace(n.Text())
}
