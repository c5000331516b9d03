package transform

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-extractor/internal/dom"
	"news-extractor/internal/scraper"
)

const storyHTML = `<html><head>
<meta property="article:published_time" content="2024-10-18T09:30:00Z">
</head><body>
<article>
  <h1> Bridge reopens after repairs </h1>
  <time datetime="2024-10-18T09:30:00+06:00">18 October</time>
  <span class="date">October 18, 2024</span>
  <a class="tag" href="/tags/city#top">City</a>
  <a class="tag" href="https://n.example/tags/roads">Roads</a>
  <a class="tag" href="javascript:void(0)">Share</a>
  <img src="/img/bridge.jpg" alt="bridge">
  <div class="paywall">Subscribers ONLY content</div>
  <p></p>
</article>
</body></html>`

func mustPage(t *testing.T, html string) *dom.Document {
	t.Helper()
	page, err := dom.ParseString(html, "https://n.example/news/bridge")
	require.NoError(t, err)
	return page
}

func eval(t *testing.T, sel scraper.Selector) (any, error) {
	t.Helper()
	return scraper.Evaluate(context.Background(), mustPage(t, storyHTML), "field", sel)
}

func TestBasicTransforms(t *testing.T) {
	tests := []struct {
		name     string
		sel      scraper.Selector
		expected any
	}{
		{"text trims", scraper.SelectOne("//h1", Text), "Bridge reopens after repairs"},
		{"text absent", scraper.SelectOne("h2", Text), nil},
		{"texts", scraper.SelectMany("a.tag", Texts), []string{"City", "Roads", "Share"}},
		{"texts empty", scraper.SelectMany("h2", Texts), []string{}},
		{"html", scraper.SelectOne("//time", HTML), `<time datetime="2024-10-18T09:30:00+06:00">18 October</time>`},
		{"attr", scraper.SelectOne("img", Attr("alt")), "bridge"},
		{"attr missing", scraper.SelectOne("img", Attr("title")), nil},
		{"attrs", scraper.SelectMany("a.tag", Attrs("href")), []string{"/tags/city#top", "https://n.example/tags/roads", "javascript:void(0)"}},
		{"link resolves", scraper.SelectOne("a.tag", Link), "https://n.example/tags/city"},
		{"link from src", scraper.SelectOne("img", Link), "https://n.example/img/bridge.jpg"},
		{"links", scraper.SelectMany("a.tag", Links), []string{"https://n.example/tags/city", "https://n.example/tags/roads"}},
		{"exists", scraper.SelectOne(".paywall", Exists), true},
		{"not exists", scraper.SelectOne(".comments", Exists), false},
		{"count", scraper.SelectMany("//a[@class='tag']", Count), 3},
		{"join", scraper.SelectMany("a.tag", Join(", ")), "City, Roads, Share"},
		{"join absent one", scraper.SelectOne("h2", Join(", ")), nil},
		{"contains", scraper.SelectOne(".paywall", Contains("subscribers only")), true},
		{"contains no", scraper.SelectOne(".paywall", Contains("free")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eval(t, tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTimeTransforms(t *testing.T) {
	got, err := eval(t, scraper.SelectOne("//time", Time("", "")))
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 10, 18, 3, 30, 0, 0, time.UTC).Equal(got.(time.Time)))

	got, err = eval(t, scraper.SelectOne("//time", Time("missing", "2 January")))
	require.NoError(t, err)
	parsed := got.(time.Time)
	assert.Equal(t, time.October, parsed.Month())
	assert.Equal(t, 18, parsed.Day())

	got, err = eval(t, scraper.SelectOne("//h2", Time("", "")))
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = eval(t, scraper.SelectOne("//h1", Time("", "")))
	var fe *scraper.FieldExtractionError
	assert.ErrorAs(t, err, &fe)
}

func TestDate(t *testing.T) {
	got, err := eval(t, scraper.SelectOne("span.date", Date))
	require.NoError(t, err)
	d := got.(time.Time)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.October, d.Month())
	assert.Equal(t, 18, d.Day())

	got, err = eval(t, scraper.SelectOne(`meta[property="article:published_time"]`, Date))
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 10, 18, 9, 30, 0, 0, time.UTC).Equal(got.(time.Time)))

	_, err = eval(t, scraper.SelectOne("img", Date))
	assert.NoError(t, err, "an image without text is an absent date")

	_, err = eval(t, scraper.SelectOne(".paywall", Date))
	assert.Error(t, err)
}

func TestRequired(t *testing.T) {
	_, err := eval(t, scraper.SelectOne("h2", Required(Text)))
	assert.ErrorIs(t, err, ErrMissing)

	_, err = eval(t, scraper.SelectOne("//p", Required(Text)))
	assert.ErrorIs(t, err, ErrMissing, "empty text counts as missing")

	_, err = eval(t, scraper.SelectMany("h2", Required(Texts)))
	assert.ErrorIs(t, err, ErrMissing, "empty list counts as missing")

	_, err = eval(t, scraper.SelectMany(".comments", Required(Exists)))
	assert.NoError(t, err, "false is a value")

	got, err := eval(t, scraper.SelectOne("//h1", Required(Text)))
	require.NoError(t, err)
	assert.Equal(t, "Bridge reopens after repairs", got)
}
