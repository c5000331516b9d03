package transform

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"

	"news-extractor/internal/scraper"
)

// Readable runs readability over the first node's HTML and returns the main
// article text. Point it at a container such as //article or body.
func Readable(m scraper.Match) (any, error) {
	n, ok := m.Node()
	if !ok {
		return nil, nil
	}

	var base *url.URL
	if m.BaseURL() != "" {
		base, _ = url.Parse(m.BaseURL())
	}
	article, err := readability.FromReader(strings.NewReader(n.HTML()), base)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := strings.TrimSpace(spacesRe.ReplaceAllString(article.TextContent, " "))
	if text == "" {
		return nil, nil
	}
	return text, nil
}
