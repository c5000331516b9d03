package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listing(next string, links ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for _, l := range links {
		fmt.Fprintf(&b, `<li><a class="teaser" href="%s">story</a></li>`, l)
	}
	b.WriteString("</ul>")
	if next != "" {
		fmt.Fprintf(&b, `<a rel="next" href="%s">next</a>`, next)
	}
	b.WriteString("</body></html>")
	return b.String()
}

var teaserQuery = LinkQuery{
	LinkLocator: `//a[@class="teaser"]`,
	NextLocator: `//a[@rel="next"]`,
	MaxPages:    5,
}

func TestCollectStopsOnSelfReferencingNext(t *testing.T) {
	driver := newFakeDriver(map[string]string{
		"https://n.example/news": listing("/news", "/a/1", "/a/2", "https://n.example/a/3"),
	})
	s := NewLinkScraper(driver, nil, Options{})

	links, err := s.Collect(context.Background(), "https://n.example/news", teaserQuery)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://n.example/a/1",
		"https://n.example/a/2",
		"https://n.example/a/3",
	}, links)
	assert.Len(t, driver.visited(), 1)
	assert.Equal(t, driver.opened.Load(), driver.closed.Load())
}

func TestCollectTreatsRedirectTargetAsVisited(t *testing.T) {
	driver := newFakeDriver(map[string]string{
		"https://n.example/news":     listing("/news?p=2", "/a/1"),
		"https://n.example/news?p=1": listing("/news?p=2", "/a/1"),
		"https://n.example/news?p=2": listing("/news?p=1", "/a/2"),
	})
	driver.redirect = map[string]string{"https://n.example/news": "https://n.example/news?p=1"}
	s := NewLinkScraper(driver, nil, Options{})

	links, err := s.Collect(context.Background(), "https://n.example/news", teaserQuery)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://n.example/a/1", "https://n.example/a/2"}, links)
	assert.Equal(t, []string{"https://n.example/news", "https://n.example/news?p=2"}, driver.visited())
}

func TestCollectDeduplicatesAcrossPagesInFirstSeenOrder(t *testing.T) {
	driver := newFakeDriver(map[string]string{
		"https://n.example/news":     listing("/news?p=2", "/a/1", "/a/2#comments", "/a/1"),
		"https://n.example/news?p=2": listing("/news", "/a/2", "/a/3"),
	})
	s := NewLinkScraper(driver, nil, Options{})

	links, err := s.Collect(context.Background(), "https://n.example/news", teaserQuery)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://n.example/a/1",
		"https://n.example/a/2",
		"https://n.example/a/3",
	}, links)
	assert.Equal(t, []string{"https://n.example/news", "https://n.example/news?p=2"}, driver.visited())
}

func TestCollectTerminatesAtMaxPages(t *testing.T) {
	driver := newFakeDriver(nil)
	driver.dynamic = func(u string) (string, bool) {
		parsed, _ := url.Parse(u)
		var n int
		fmt.Sscanf(parsed.Query().Get("p"), "%d", &n)
		return listing(fmt.Sprintf("/news?p=%d", n+1), fmt.Sprintf("/a/%d", n)), true
	}
	s := NewLinkScraper(driver, nil, Options{})

	links, err := s.Collect(context.Background(), "https://n.example/news?p=0", LinkQuery{
		LinkLocator: "a.teaser",
		NextLocator: "a[rel=next]",
		MaxPages:    3,
	})

	require.NoError(t, err)
	assert.Len(t, links, 3)
	assert.Len(t, driver.visited(), 3)
}

func TestCollectWithoutNextLocatorReadsOnePage(t *testing.T) {
	driver := newFakeDriver(map[string]string{
		"https://n.example/news": listing("/news?p=2", "/a/1"),
	})
	s := NewLinkScraper(driver, nil, Options{})

	links, err := s.Collect(context.Background(), "https://n.example/news", LinkQuery{LinkLocator: "//a[@class='teaser']/@href"})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://n.example/a/1"}, links)
	assert.Len(t, driver.visited(), 1)
}

func TestCollectErrors(t *testing.T) {
	s := NewLinkScraper(newFakeDriver(nil), nil, Options{})
	_, err := s.Collect(context.Background(), "https://n.example/news", LinkQuery{})
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)

	down := errors.New("host down")
	driver := newFakeDriver(nil)
	driver.errs["https://n.example/news"] = down
	_, err = NewLinkScraper(driver, nil, Options{}).Collect(context.Background(), "https://n.example/news", teaserQuery)
	assert.ErrorIs(t, err, down)

	empty := newFakeDriver(map[string]string{"https://n.example/news": listing("")})
	_, err = NewLinkScraper(empty, nil, Options{}).Collect(context.Background(), "https://n.example/news", teaserQuery)
	assert.ErrorIs(t, err, ErrNoLinks)
}

func TestCollectKeepsLinksWhenLaterPageFails(t *testing.T) {
	driver := newFakeDriver(map[string]string{
		"https://n.example/news": listing("/news?p=2", "/a/1"),
	})
	driver.errs["https://n.example/news?p=2"] = errors.New("timeout")

	links, err := NewLinkScraper(driver, nil, Options{}).Collect(context.Background(), "https://n.example/news", teaserQuery)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://n.example/a/1"}, links)
}

func TestCollectAllMergesAndSkipsFailures(t *testing.T) {
	driver := newFakeDriver(map[string]string{
		"https://n.example/politics": listing("", "/a/1", "/a/2"),
		"https://n.example/sports":   listing("", "/a/2", "/a/3"),
	})
	driver.errs["https://n.example/culture"] = errors.New("unreachable")

	links, err := NewLinkScraper(driver, nil, Options{}).CollectAll(context.Background(),
		[]string{"https://n.example/politics", "https://n.example/culture", "https://n.example/sports"}, teaserQuery)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://n.example/a/1", "https://n.example/a/2", "https://n.example/a/3"}, links)
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://n.example/news/today")

	tests := []struct {
		input    string
		expected string
	}{
		{"/a/1#top", "https://n.example/a/1"},
		{"story", "https://n.example/news/story"},
		{"  https://other.example/x  ", "https://other.example/x"},
		{"javascript:void(0)", ""},
		{"mailto:desk@n.example", ""},
		{"#", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ResolveURL(base, tt.input), tt.input)
	}
}
