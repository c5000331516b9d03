package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/tidwall/gjson"
)

// Getter fetches a raw response body. The backend driver implements it.
type Getter interface {
	GetBody(ctx context.Context, url string) ([]byte, error)
}

// CollectFeed reads article links from an RSS or Atom feed.
func (s *LinkScraper) CollectFeed(ctx context.Context, g Getter, feedURL string) ([]string, error) {
	body, err := g.GetBody(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	var links []string
	seen := make(map[string]struct{})
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		links = appendUnique(links, seen, []string{link})
	}

	s.logger.Info("Feed links collected", "url", feedURL, "items", len(feed.Items), "links", len(links))

	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}

// CollectJSON reads article links from JSON API responses. path is a gjson
// path that resolves to a string or an array of strings, e.g. "docs.#.url".
// Endpoints that fail are skipped.
func (s *LinkScraper) CollectJSON(ctx context.Context, g Getter, urls []string, path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, configErrorf("json path is required")
	}

	var links []string
	seen := make(map[string]struct{})
	var errs []error

	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return links, err
		}

		body, err := g.GetBody(ctx, u)
		if err != nil {
			s.logger.Error("Error opening API url, skipping this one", "url", u, "error", err.Error())
			errs = append(errs, err)
			continue
		}
		if !gjson.ValidBytes(body) {
			err := fmt.Errorf("response of %s is not valid JSON", u)
			s.logger.Error("Error parsing API response, skipping this one", "url", u, "error", err.Error())
			errs = append(errs, err)
			continue
		}

		result := gjson.GetBytes(body, path)
		var found []string
		if result.IsArray() {
			for _, v := range result.Array() {
				if link := strings.TrimSpace(v.String()); link != "" {
					found = append(found, link)
				}
			}
		} else if link := strings.TrimSpace(result.String()); link != "" {
			found = append(found, link)
		}
		links = appendUnique(links, seen, found)
	}

	s.logger.Info("API links collected", "endpoints", len(urls), "links", len(links))

	if len(links) == 0 {
		return nil, errors.Join(append([]error{ErrNoLinks}, errs...)...)
	}
	return links, nil
}
