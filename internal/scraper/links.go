package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"news-extractor/internal/observability"
)

// DefaultMaxPages bounds pagination when a LinkQuery leaves MaxPages unset.
const DefaultMaxPages = 10

// LinkQuery describes how to walk a listing. NextLocator is optional; without
// it only the start page is read.
type LinkQuery struct {
	LinkLocator string
	NextLocator string
	MaxPages    int
}

// LinkScraper collects article URLs from listing pages.
type LinkScraper struct {
	driver Driver
	hooks  []Hook
	opts   Options
	logger *observability.Logger
}

// NewLinkScraper builds a link collector. hooks run on every listing page
// before links are read.
func NewLinkScraper(driver Driver, hooks []Hook, opts Options) *LinkScraper {
	return &LinkScraper{
		driver: driver,
		hooks:  hooks,
		opts:   opts,
		logger: opts.Logger,
	}
}

// Collect walks the listing starting at start and returns article URLs,
// deduplicated by exact string in first-seen order. Pagination stops when
// there is no next link, when the next link was already visited, or after
// MaxPages pages. A failure on the start page is returned as is; a failure on
// a later page ends pagination with what was collected so far.
func (s *LinkScraper) Collect(ctx context.Context, start string, q LinkQuery) ([]string, error) {
	if strings.TrimSpace(q.LinkLocator) == "" {
		return nil, configErrorf("link locator is required")
	}
	if s.driver == nil {
		return nil, configErrorf("driver is required")
	}

	maxPages := q.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var links []string
	seen := make(map[string]struct{})
	visited := make(map[string]struct{})
	current := start
	stoppedReason := "max pages reached"

	for pageNum := 1; pageNum <= maxPages; pageNum++ {
		visited[current] = struct{}{}

		hrefs, next, final, err := s.readListing(ctx, current, q)
		if err != nil {
			if pageNum == 1 {
				return nil, err
			}
			s.logger.Warn("Listing page failed, stopping pagination",
				"page", pageNum,
				"url", current,
				"error", err.Error(),
			)
			stoppedReason = fmt.Sprintf("error at page %d", pageNum)
			break
		}
		// A redirected page is visited under both URLs.
		visited[final] = struct{}{}

		added := 0
		for _, href := range hrefs {
			if _, ok := seen[href]; ok {
				continue
			}
			seen[href] = struct{}{}
			links = append(links, href)
			added++
		}

		s.logger.Debug("Listing page processed",
			"page", pageNum,
			"url", current,
			"links", len(hrefs),
			"new_links", added,
		)

		if next == "" {
			stoppedReason = fmt.Sprintf("no next link at page %d", pageNum)
			break
		}
		if _, ok := visited[next]; ok {
			stoppedReason = fmt.Sprintf("next link at page %d already visited", pageNum)
			break
		}
		current = next
	}

	s.logger.Info("Link collection completed",
		"start_url", start,
		"links", len(links),
		"reason", stoppedReason,
	)

	if len(links) == 0 {
		return nil, ErrNoLinks
	}
	return links, nil
}

// CollectAll runs Collect for several listing URLs and merges the results.
// Listings that fail are skipped; only a total failure is an error.
func (s *LinkScraper) CollectAll(ctx context.Context, starts []string, q LinkQuery) ([]string, error) {
	var links []string
	seen := make(map[string]struct{})
	var errs []error

	for _, start := range starts {
		if err := ctx.Err(); err != nil {
			return links, err
		}
		found, err := s.Collect(ctx, start, q)
		if err != nil {
			var cfgErr *ConfigError
			if errors.As(err, &cfgErr) {
				return nil, err
			}
			s.logger.Error("Error collecting links, skipping this listing", "url", start, "error", err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", start, err))
			continue
		}
		links = appendUnique(links, seen, found)
	}

	if len(links) == 0 {
		return nil, errors.Join(append([]error{ErrNoLinks}, errs...)...)
	}
	return links, nil
}

// readListing returns the page's links, its next link and the URL the page
// ended up at.
func (s *LinkScraper) readListing(ctx context.Context, pageURL string, q LinkQuery) (hrefs []string, next, final string, err error) {
	fetchCtx := ctx
	if s.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, s.opts.FetchTimeout)
		defer cancel()
	}

	page, err := s.driver.Navigate(fetchCtx, pageURL)
	if err != nil {
		return nil, "", "", err
	}
	defer func() {
		if err := page.Close(); err != nil {
			s.logger.Warn("Failed to close page", "url", pageURL, "error", err.Error())
		}
	}()

	if err := RunHooks(ctx, page, s.hooks, s.opts.HookTimeout); err != nil {
		return nil, "", "", err
	}

	base := page.URL()
	if base == "" {
		base = pageURL
	}

	value, err := Evaluate(ctx, page, "links", SelectMany(q.LinkLocator, hrefsTransform(base)))
	if err != nil {
		return nil, "", "", err
	}
	hrefs, _ = value.([]string)

	if strings.TrimSpace(q.NextLocator) == "" {
		return hrefs, "", base, nil
	}

	value, err = Evaluate(ctx, page, "next_page", SelectOne(q.NextLocator, hrefsTransform(base)))
	if err != nil {
		return nil, "", "", err
	}
	if nexts, _ := value.([]string); len(nexts) > 0 {
		next = nexts[0]
	}
	return hrefs, next, base, nil
}

// hrefsTransform reads href (or the text of an attribute step such as
// //a/@href), resolves it against base and drops fragments and
// non-navigable schemes.
func hrefsTransform(base string) Transform {
	baseURL, _ := url.Parse(base)
	return func(m Match) (any, error) {
		out := make([]string, 0, m.Len())
		for _, n := range m.Nodes() {
			raw, ok := n.Attr("href")
			if !ok {
				raw = n.Text()
			}
			if link := ResolveURL(baseURL, raw); link != "" {
				out = append(out, link)
			}
		}
		return out, nil
	}
}

// ResolveURL turns raw into an absolute URL without fragment. It returns ""
// for empty, javascript: and mailto: references.
func ResolveURL(base *url.URL, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "#" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") {
		return ""
	}

	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	ref.Fragment = ""
	ref.RawFragment = ""
	return ref.String()
}

func appendUnique(dst []string, seen map[string]struct{}, src []string) []string {
	for _, s := range src {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		dst = append(dst, s)
	}
	return dst
}
