package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGetter map[string]string

func (g fakeGetter) GetBody(_ context.Context, url string) ([]byte, error) {
	body, ok := g[url]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

const rssFixture = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>News</title>
<item><title>One</title><link>https://n.example/a/1</link></item>
<item><title>Two</title><link> https://n.example/a/2 </link></item>
<item><title>One again</title><link>https://n.example/a/1</link></item>
</channel></rss>`

func TestCollectFeed(t *testing.T) {
	s := NewLinkScraper(nil, nil, Options{})

	links, err := s.CollectFeed(context.Background(), fakeGetter{"https://n.example/rss": rssFixture}, "https://n.example/rss")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://n.example/a/1", "https://n.example/a/2"}, links)
}

func TestCollectFeedErrors(t *testing.T) {
	s := NewLinkScraper(nil, nil, Options{})
	g := fakeGetter{
		"https://n.example/broken": "this is not a feed",
		"https://n.example/empty":  `<rss version="2.0"><channel><title>x</title></channel></rss>`,
	}

	_, err := s.CollectFeed(context.Background(), g, "https://n.example/broken")
	assert.Error(t, err)

	_, err = s.CollectFeed(context.Background(), g, "https://n.example/empty")
	assert.ErrorIs(t, err, ErrNoLinks)

	_, err = s.CollectFeed(context.Background(), g, "https://n.example/missing")
	assert.Error(t, err)
}

func TestCollectJSON(t *testing.T) {
	s := NewLinkScraper(nil, nil, Options{})
	g := fakeGetter{
		"https://api.n.example/p1": `{"docs":[{"url":"https://n.example/a/1"},{"url":"https://n.example/a/2"}]}`,
		"https://api.n.example/p2": `{"docs":[{"url":"https://n.example/a/2"},{"url":"https://n.example/a/3"}]}`,
		"https://api.n.example/p3": `not json`,
	}

	links, err := s.CollectJSON(context.Background(), g,
		[]string{"https://api.n.example/p1", "https://api.n.example/p3", "https://api.n.example/missing", "https://api.n.example/p2"},
		"docs.#.url")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://n.example/a/1", "https://n.example/a/2", "https://n.example/a/3"}, links)
}

func TestCollectJSONNothingFound(t *testing.T) {
	s := NewLinkScraper(nil, nil, Options{})
	g := fakeGetter{"https://api.n.example/p1": `{"docs":[]}`}

	_, err := s.CollectJSON(context.Background(), g, []string{"https://api.n.example/p1"}, "docs.#.url")
	assert.ErrorIs(t, err, ErrNoLinks)

	_, err = s.CollectJSON(context.Background(), g, []string{"https://api.n.example/p1"}, "")
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}
