package scraper

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"news-extractor/internal/dom"
)

// fakeDriver serves static HTML per URL and tracks page lifecycles.
type fakeDriver struct {
	mu       sync.Mutex
	pages    map[string]string
	errs     map[string]error
	redirect map[string]string
	opened   atomic.Int64
	closed   atomic.Int64
	visits   []string
	dynamic  func(url string) (string, bool)
	closeErr error
}

func newFakeDriver(pages map[string]string) *fakeDriver {
	return &fakeDriver{pages: pages, errs: map[string]error{}}
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) (dom.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.visits = append(d.visits, url)
	err := d.errs[url]
	html, ok := d.pages[url]
	final, moved := d.redirect[url]
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok && d.dynamic != nil {
		html, ok = d.dynamic(url)
	}
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", url)
	}

	if !moved {
		final = url
	}
	doc, err := dom.ParseString(html, final)
	if err != nil {
		return nil, err
	}
	d.opened.Add(1)
	return &trackedPage{Document: doc, driver: d}, nil
}

func (d *fakeDriver) Close() error {
	return d.closeErr
}

func (d *fakeDriver) visited() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.visits...)
}

type trackedPage struct {
	*dom.Document
	driver *fakeDriver
}

func (p *trackedPage) Close() error {
	p.driver.closed.Add(1)
	return p.Document.Close()
}
