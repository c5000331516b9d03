package dom

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

var (
	_ Page    = (*Document)(nil)
	_ Remover = (*Document)(nil)
	_ Waiter  = (*Document)(nil)
)

// Document is a static, parsed HTML page. It answers CSS locators through
// goquery and XPath locators through htmlquery over the same node tree.
// It is safe for concurrent use: a hook abandoned on timeout may still be
// running when the page is closed.
type Document struct {
	url string

	mu     sync.RWMutex
	doc    *goquery.Document
	closed bool
}

// Parse reads an HTML document. pageURL is kept as the base for link
// resolution and may be empty.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc := goquery.NewDocumentFromNode(root)
	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			doc.Url = u
		}
	}

	return &Document{url: pageURL, doc: doc}, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(s), pageURL)
}

func (d *Document) URL() string {
	return d.url
}

func (d *Document) Query(ctx context.Context, locator string) ([]Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}

	lang, expr := SplitLocator(locator)
	if expr == "" {
		return nil, fmt.Errorf("empty locator")
	}

	if lang == XPath {
		found, err := htmlquery.QueryAll(d.doc.Nodes[0], expr)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
		}
		nodes := make([]Node, 0, len(found))
		for _, n := range found {
			nodes = append(nodes, wrapHTMLNode(n))
		}
		return nodes, nil
	}

	sel, err := d.findCSS(expr)
	if err != nil {
		return nil, err
	}
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, selectionNode{sel: s})
	})
	return nodes, nil
}

// Remove detaches every node matching locator from the tree.
func (d *Document) Remove(ctx context.Context, locator string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	lang, expr := SplitLocator(locator)
	if lang == XPath {
		found, err := htmlquery.QueryAll(d.doc.Nodes[0], expr)
		if err != nil {
			return fmt.Errorf("invalid xpath %q: %w", expr, err)
		}
		for _, n := range found {
			if n.Parent != nil {
				n.Parent.RemoveChild(n)
			}
		}
		return nil
	}

	sel, err := d.findCSS(expr)
	if err != nil {
		return err
	}
	sel.Remove()
	return nil
}

// WaitFor succeeds when locator matches now; a static page never changes.
func (d *Document) WaitFor(ctx context.Context, locator string) error {
	nodes, err := d.Query(ctx, locator)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, locator)
	}
	return nil
}

func (d *Document) Click(context.Context, string) error {
	return fmt.Errorf("click: %w", ErrUnsupported)
}

func (d *Document) Eval(context.Context, string) error {
	return fmt.Errorf("eval: %w", ErrUnsupported)
}

func (d *Document) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

func (d *Document) findCSS(expr string) (*goquery.Selection, error) {
	matcher, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid css selector %q: %w", expr, err)
	}
	return d.doc.FindMatcher(matcher), nil
}

type selectionNode struct {
	sel *goquery.Selection
}

func (n selectionNode) Text() string {
	return n.sel.Text()
}

func (n selectionNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n selectionNode) HTML() string {
	out, err := goquery.OuterHtml(n.sel)
	if err != nil {
		return ""
	}
	return out
}

// wrapHTMLNode covers nodes htmlquery synthesizes for attribute steps
// (//a/@href), which are not attached to the document tree.
func wrapHTMLNode(n *html.Node) Node {
	return selectionNode{sel: goquery.NewDocumentFromNode(n).Selection}
}
