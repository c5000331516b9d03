package app

import (
	"context"
	"errors"

	"news-extractor/internal/config"
	"news-extractor/internal/scraper"
)

// SiteLinks builds the link collector for a site's links block. It returns
// nil when the site only lists static URLs. getter serves feed and json
// sources and may be nil for listing sources.
func SiteLinks(site *config.Site, links *scraper.LinkScraper, getter scraper.Getter) LinkCollector {
	lc := site.Links
	if lc == nil {
		return nil
	}

	switch lc.SourceKind() {
	case config.SourceFeed:
		return func(ctx context.Context) ([]string, error) {
			if getter == nil {
				return nil, &scraper.ConfigError{Reason: "feed source needs an HTTP getter"}
			}
			return links.CollectFeed(ctx, getter, lc.FeedURL)
		}
	case config.SourceJSON:
		return func(ctx context.Context) ([]string, error) {
			if getter == nil {
				return nil, &scraper.ConfigError{Reason: "json source needs an HTTP getter"}
			}
			return links.CollectJSON(ctx, getter, lc.APIURLs, lc.JSONPath)
		}
	default:
		return func(ctx context.Context) ([]string, error) {
			return links.CollectAll(ctx, lc.StartURLs, lc.Query())
		}
	}
}

// IsConfigError reports whether err means nothing was fetched because the
// setup itself is wrong.
func IsConfigError(err error) bool {
	var cfgErr *scraper.ConfigError
	return errors.As(err, &cfgErr)
}
