package transform

import (
	"net/url"
	"strings"

	"news-extractor/internal/dom"
	"news-extractor/internal/scraper"
)

// Text returns the trimmed text of the first node, or nil when nothing matched.
func Text(m scraper.Match) (any, error) {
	n, ok := m.Node()
	if !ok {
		return nil, nil
	}
	return strings.TrimSpace(n.Text()), nil
}

// Texts returns the trimmed text of every node. Empty texts are kept so that
// positions line up with the matched nodes.
func Texts(m scraper.Match) (any, error) {
	out := make([]string, 0, m.Len())
	for _, n := range m.Nodes() {
		out = append(out, strings.TrimSpace(n.Text()))
	}
	return out, nil
}

// HTML returns the outer HTML of the first node.
func HTML(m scraper.Match) (any, error) {
	n, ok := m.Node()
	if !ok {
		return nil, nil
	}
	return n.HTML(), nil
}

// Attr reads one attribute of the first node. A node without the attribute
// yields nil.
func Attr(name string) scraper.Transform {
	return func(m scraper.Match) (any, error) {
		n, ok := m.Node()
		if !ok {
			return nil, nil
		}
		v, ok := n.Attr(name)
		if !ok {
			return nil, nil
		}
		return strings.TrimSpace(v), nil
	}
}

// Attrs reads an attribute from every node, skipping nodes that lack it.
func Attrs(name string) scraper.Transform {
	return func(m scraper.Match) (any, error) {
		out := make([]string, 0, m.Len())
		for _, n := range m.Nodes() {
			if v, ok := n.Attr(name); ok {
				out = append(out, strings.TrimSpace(v))
			}
		}
		return out, nil
	}
}

// Link resolves the href of the first node against the page URL.
func Link(m scraper.Match) (any, error) {
	n, ok := m.Node()
	if !ok {
		return nil, nil
	}
	link := resolve(m.BaseURL(), n)
	if link == "" {
		return nil, nil
	}
	return link, nil
}

// Links resolves every href, dropping empty and non-navigable references.
func Links(m scraper.Match) (any, error) {
	out := make([]string, 0, m.Len())
	for _, n := range m.Nodes() {
		if link := resolve(m.BaseURL(), n); link != "" {
			out = append(out, link)
		}
	}
	return out, nil
}

func resolve(base string, n dom.Node) string {
	raw, ok := n.Attr("href")
	if !ok {
		raw, ok = n.Attr("src")
	}
	if !ok {
		raw = n.Text()
	}
	baseURL, _ := url.Parse(base)
	return scraper.ResolveURL(baseURL, raw)
}

// Exists reports whether anything matched.
func Exists(m scraper.Match) (any, error) {
	return m.Len() > 0, nil
}

// Count returns the number of matched nodes.
func Count(m scraper.Match) (any, error) {
	return m.Len(), nil
}

// Join concatenates the non-empty trimmed texts of every node with sep.
func Join(sep string) scraper.Transform {
	return func(m scraper.Match) (any, error) {
		parts := make([]string, 0, m.Len())
		for _, n := range m.Nodes() {
			if t := strings.TrimSpace(n.Text()); t != "" {
				parts = append(parts, t)
			}
		}
		if len(parts) == 0 && m.Multiplicity() == scraper.One {
			return nil, nil
		}
		return strings.Join(parts, sep), nil
	}
}

// Contains reports whether any matched node's text contains value, case
// insensitively. Useful for flags such as a paywall marker.
func Contains(value string) scraper.Transform {
	needle := strings.ToLower(value)
	return func(m scraper.Match) (any, error) {
		for _, n := range m.Nodes() {
			if strings.Contains(strings.ToLower(n.Text()), needle) {
				return true, nil
			}
		}
		return false, nil
	}
}
