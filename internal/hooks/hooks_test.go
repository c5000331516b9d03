package hooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-extractor/internal/dom"
	"news-extractor/internal/scraper"
)

const pageHTML = `<html><body>
<div id="consent"><button class="accept">OK</button></div>
<div class="ad">buy</div><div class="ad">now</div>
<h1>Headline</h1>
</body></html>`

// scriptedPage records interactions on top of a static document.
type scriptedPage struct {
	*dom.Document
	clicks  []string
	scripts []string
}

func (p *scriptedPage) Click(ctx context.Context, locator string) error {
	nodes, err := p.Query(ctx, locator)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return dom.ErrNotFound
	}
	p.clicks = append(p.clicks, locator)
	return nil
}

func (p *scriptedPage) Eval(_ context.Context, script string) error {
	p.scripts = append(p.scripts, script)
	return nil
}

func newPage(t *testing.T) *scriptedPage {
	t.Helper()
	doc, err := dom.ParseString(pageHTML, "https://n.example/a/1")
	require.NoError(t, err)
	return &scriptedPage{Document: doc}
}

func TestRemoveAndWait(t *testing.T) {
	page := newPage(t)
	ctx := context.Background()

	err := scraper.RunHooks(ctx, page, []scraper.Hook{Remove(".ad"), WaitFor("//h1")}, time.Second)
	require.NoError(t, err)

	nodes, err := page.Query(ctx, ".ad")
	require.NoError(t, err)
	assert.Empty(t, nodes)

	err = scraper.RunHooks(ctx, page, []scraper.Hook{WaitFor(".comments")}, time.Second)
	var he *scraper.HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "wait .comments", he.Name)
	assert.ErrorIs(t, err, dom.ErrNotFound)
}

func TestClick(t *testing.T) {
	page := newPage(t)
	ctx := context.Background()

	require.NoError(t, Click("#consent .accept", false).Fn(ctx, page))
	assert.Equal(t, []string{"#consent .accept"}, page.clicks)

	assert.NoError(t, Click(".newsletter-close", true).Fn(ctx, page))
	assert.ErrorIs(t, Click(".newsletter-close", false).Fn(ctx, page), dom.ErrNotFound)
}

func TestUnsupportedOnStaticDocument(t *testing.T) {
	doc, err := dom.ParseString(pageHTML, "https://n.example/a/1")
	require.NoError(t, err)

	err = Click("#consent .accept", true).Fn(context.Background(), doc)
	assert.ErrorIs(t, err, dom.ErrUnsupported)

	err = Scroll(1, 0).Fn(context.Background(), doc)
	assert.ErrorIs(t, err, dom.ErrUnsupported)
}

func TestScrollAndEval(t *testing.T) {
	page := newPage(t)

	require.NoError(t, Scroll(3, time.Millisecond).Fn(context.Background(), page))
	require.NoError(t, Eval("document.title = 'x'").Fn(context.Background(), page))

	assert.Len(t, page.scripts, 4)
	assert.Equal(t, scrollScript, page.scripts[0])
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Sleep(time.Minute).Fn(ctx, nil)

	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBuild(t *testing.T) {
	hooks, err := BuildAll([]Spec{
		{Action: "click", Locator: ".accept", Optional: true},
		{Action: "Remove", Locator: ".ad"},
		{Action: "wait", Locator: "h1"},
		{Action: "eval", Script: "1"},
		{Action: "scroll", Times: 2},
		{Action: "sleep", Duration: time.Millisecond},
	})
	require.NoError(t, err)
	require.Len(t, hooks, 6)
	assert.Equal(t, "remove .ad", hooks[1].Name)

	bad := []Spec{
		{Action: "click"},
		{Action: "eval"},
		{Action: "sleep"},
		{Action: "teleport", Locator: "x"},
	}
	for _, s := range bad {
		_, err := Build(s)
		assert.Error(t, err, s.Action)
	}

	_, err = BuildAll([]Spec{{Action: "wait", Locator: "h1"}, {Action: "dance"}})
	assert.ErrorContains(t, err, "hooks[1]")
}
