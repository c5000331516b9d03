package fetcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"news-extractor/internal/config"
	"news-extractor/internal/dom"
	"news-extractor/internal/observability"
)

const statusGrace = 500 * time.Millisecond

var (
	_ dom.Page      = (*browserPage)(nil)
	_ dom.Clicker   = (*browserPage)(nil)
	_ dom.Remover   = (*browserPage)(nil)
	_ dom.Waiter    = (*browserPage)(nil)
	_ dom.Evaluator = (*browserPage)(nil)
)

// Frontend renders pages in a Chrome instance driven by rod. The browser is
// launched on first use and shared by every page; each Navigate opens its
// own tab. When gate is set, every Navigate passes its robots.txt check and
// per-host rate limit first.
type Frontend struct {
	cfg    *config.Config
	headed bool
	gate   *Backend
	logger *observability.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
	closed   bool
}

func NewFrontend(cfg *config.Config, headed bool, gate *Backend, logger *observability.Logger) *Frontend {
	return &Frontend{cfg: cfg, headed: headed, gate: gate, logger: logger}
}

func (f *Frontend) ensureBrowser() (*rod.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, fmt.Errorf("frontend driver is closed")
	}
	if f.browser != nil {
		return f.browser, nil
	}

	l := launcher.New().
		Headless(!f.headed).
		Set("window-size", fmt.Sprintf("%d,%d", f.cfg.Rod.WindowWidth, f.cfg.Rod.WindowHeight))
	if f.cfg.Rod.ChromePath != "" {
		l = l.Bin(f.cfg.Rod.ChromePath)
	}
	if f.cfg.Rod.Proxy != "" {
		l = l.Proxy(f.cfg.Rod.Proxy)
	}
	if f.cfg.Rod.NoSandbox {
		l = l.NoSandbox(true)
	}
	if f.cfg.Rod.UserDataDir != "" {
		l = l.UserDataDir(f.cfg.Rod.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Trace(f.cfg.Rod.TracePageLoads)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	f.logger.Info("Browser launched",
		"headed", f.headed,
		"window", fmt.Sprintf("%dx%d", f.cfg.Rod.WindowWidth, f.cfg.Rod.WindowHeight),
		"proxy", f.cfg.Rod.Proxy != "",
	)

	f.launcher = l
	f.browser = browser
	return browser, nil
}

// Navigate opens urlStr in a new tab and waits for the load event plus the
// configured settle delay. A main document status >= 400 is an HTTPStatus
// error. The tab is closed on every failure path.
func (f *Frontend) Navigate(ctx context.Context, urlStr string) (dom.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(urlStr, err)
	}

	if f.gate != nil {
		release, err := f.gate.Admit(ctx, urlStr)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	browser, err := f.ensureBrowser()
	if err != nil {
		return nil, &FetchError{Kind: Unreachable, URL: urlStr, Err: err}
	}

	tab, err := browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, &FetchError{Kind: Unreachable, URL: urlStr, Err: fmt.Errorf("open tab: %w", err)}
	}

	eventsCtx, stopEvents := context.WithCancel(context.Background())
	p := &browserPage{tab: tab, url: urlStr, stopEvents: stopEvents}

	var status atomic.Int64
	gotStatus := make(chan struct{})
	waitStatus := tab.Context(eventsCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument && e.FrameID == tab.FrameID && e.Response != nil {
			status.Store(int64(e.Response.Status))
			close(gotStatus)
			return true
		}
		return false
	})
	go waitStatus()

	navCtx, cancel := context.WithTimeout(ctx, f.cfg.GetRodPageTimeout())
	defer cancel()
	nav := tab.Context(navCtx)

	start := time.Now()
	if err := nav.Navigate(urlStr); err != nil {
		_ = p.Close()
		return nil, classify(urlStr, err)
	}
	if err := nav.WaitLoad(); err != nil {
		_ = p.Close()
		return nil, classify(urlStr, err)
	}

	// The response event is delivered asynchronously; give it a moment.
	select {
	case <-gotStatus:
	case <-time.After(statusGrace):
	}

	if delay := f.cfg.GetRodSettleDelay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-navCtx.Done():
			timer.Stop()
			_ = p.Close()
			return nil, classify(urlStr, navCtx.Err())
		}
	}

	if code := int(status.Load()); code >= 400 {
		_ = p.Close()
		return nil, statusError(urlStr, code)
	}

	if info, err := nav.Info(); err == nil && info.URL != "" {
		p.url = info.URL
	}

	f.logger.Debug("Page rendered",
		"url", urlStr,
		"final_url", p.url,
		"status", status.Load(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return p, nil
}

// Close shuts the browser down and removes the launcher's temporary files.
func (f *Frontend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	if f.launcher != nil {
		f.launcher.Cleanup()
		f.launcher = nil
	}
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}

// browserPage is one rendered tab. Queries are answered from a snapshot of
// the rendered DOM, parsed the same way as backend pages; any interaction
// drops the snapshot so the next query sees the updated page.
type browserPage struct {
	tab        *rod.Page
	url        string
	stopEvents context.CancelFunc

	mu       sync.Mutex
	snapshot *dom.Document
	closed   bool
}

func (p *browserPage) URL() string {
	return p.url
}

func (p *browserPage) Query(ctx context.Context, locator string) ([]dom.Node, error) {
	snap, err := p.snapshotDoc(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Query(ctx, locator)
}

func (p *browserPage) snapshotDoc(ctx context.Context) (*dom.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, dom.ErrClosed
	}
	if p.snapshot != nil {
		return p.snapshot, nil
	}

	html, err := p.tab.Context(ctx).HTML()
	if err != nil {
		return nil, fmt.Errorf("read rendered html: %w", err)
	}
	doc, err := dom.ParseString(html, p.url)
	if err != nil {
		return nil, err
	}
	p.snapshot = doc
	return doc, nil
}

// live returns the tab bound to ctx and drops the snapshot.
func (p *browserPage) live(ctx context.Context) (*rod.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, dom.ErrClosed
	}
	p.snapshot = nil
	return p.tab.Context(ctx), nil
}

func (p *browserPage) elements(ctx context.Context, locator string) (rod.Elements, error) {
	tab, err := p.live(ctx)
	if err != nil {
		return nil, err
	}
	lang, expr := dom.SplitLocator(locator)
	if expr == "" {
		return nil, fmt.Errorf("empty locator")
	}
	if lang == dom.XPath {
		return tab.ElementsX(expr)
	}
	return tab.Elements(expr)
}

func (p *browserPage) Click(ctx context.Context, locator string) error {
	els, err := p.elements(ctx, locator)
	if err != nil {
		return err
	}
	if len(els) == 0 {
		return fmt.Errorf("click %s: %w", locator, dom.ErrNotFound)
	}
	return els[0].Click(proto.InputMouseButtonLeft, 1)
}

func (p *browserPage) Remove(ctx context.Context, locator string) error {
	els, err := p.elements(ctx, locator)
	if err != nil {
		return err
	}
	for _, el := range els {
		if err := el.Remove(); err != nil {
			return err
		}
	}
	return nil
}

// WaitFor polls until locator matches or ctx ends.
func (p *browserPage) WaitFor(ctx context.Context, locator string) error {
	tab, err := p.live(ctx)
	if err != nil {
		return err
	}
	lang, expr := dom.SplitLocator(locator)
	if lang == dom.XPath {
		_, err = tab.ElementX(expr)
	} else {
		_, err = tab.Element(expr)
	}
	if err != nil {
		return fmt.Errorf("wait %s: %w", locator, err)
	}
	return nil
}

func (p *browserPage) Eval(ctx context.Context, script string) error {
	tab, err := p.live(ctx)
	if err != nil {
		return err
	}
	_, err = tab.Eval(script)
	return err
}

// RodPage exposes the underlying tab for custom hooks. The snapshot is
// dropped since the caller may change the page.
func (p *browserPage) RodPage() *rod.Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshot = nil
	return p.tab
}

func (p *browserPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	p.snapshot = nil
	p.stopEvents()
	if err := p.tab.Close(); err != nil {
		return fmt.Errorf("close tab %s: %w", p.url, err)
	}
	return nil
}
