package scraper

import (
	"context"
	"fmt"
	"strings"

	"news-extractor/internal/dom"
)

// Multiplicity tells the engine whether a field reads one node or a list.
type Multiplicity int

const (
	One Multiplicity = iota
	Many
)

func (m Multiplicity) String() string {
	switch m {
	case One:
		return "one"
	case Many:
		return "many"
	default:
		return fmt.Sprintf("multiplicity(%d)", int(m))
	}
}

// ParseMultiplicity accepts "one" or "many"; empty means one.
func ParseMultiplicity(s string) (Multiplicity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "one":
		return One, nil
	case "many":
		return Many, nil
	default:
		return 0, fmt.Errorf("unknown multiplicity %q", s)
	}
}

// Match is what a transform receives: at most one node under One (absent
// when nothing matched), an ordered and possibly empty list under Many.
type Match struct {
	multiplicity Multiplicity
	nodes        []dom.Node
	baseURL      string
}

// NewMatch builds the Match a selector of the given multiplicity would see
// for nodes. Under One only the first node is kept.
func NewMatch(m Multiplicity, nodes []dom.Node) Match {
	if m == One {
		if len(nodes) > 1 {
			nodes = nodes[:1]
		}
		return Match{multiplicity: One, nodes: nodes}
	}
	if nodes == nil {
		nodes = []dom.Node{}
	}
	return Match{multiplicity: Many, nodes: nodes}
}

func (m Match) Multiplicity() Multiplicity {
	return m.multiplicity
}

// Absent reports a One match that found nothing. A Many match is never absent.
func (m Match) Absent() bool {
	return m.multiplicity == One && len(m.nodes) == 0
}

// Node returns the first matched node.
func (m Match) Node() (dom.Node, bool) {
	if len(m.nodes) == 0 {
		return nil, false
	}
	return m.nodes[0], true
}

// Nodes returns every matched node. Under Many the slice is never nil.
func (m Match) Nodes() []dom.Node {
	return m.nodes
}

func (m Match) Len() int {
	return len(m.nodes)
}

// BaseURL is the URL of the page the nodes came from, used to resolve
// relative references.
func (m Match) BaseURL() string {
	return m.baseURL
}

// WithBaseURL returns a copy of m bound to the given page URL.
func (m Match) WithBaseURL(u string) Match {
	m.baseURL = u
	return m
}

// Transform converts a match into a field value. It must not mutate the
// page. Returning an error makes the field fail; returning (nil, nil) is a
// legitimate absent value.
type Transform func(Match) (any, error)

// Selector describes how to pull one field out of a page.
type Selector struct {
	Locator      string
	Multiplicity Multiplicity
	Transform    Transform
}

// SelectOne builds a single-node selector.
func SelectOne(locator string, t Transform) Selector {
	return Selector{Locator: locator, Multiplicity: One, Transform: t}
}

// SelectMany builds a node-list selector.
func SelectMany(locator string, t Transform) Selector {
	return Selector{Locator: locator, Multiplicity: Many, Transform: t}
}

func (s Selector) validate(field string) error {
	if strings.TrimSpace(s.Locator) == "" {
		return configErrorf("field %q has an empty locator", field)
	}
	if s.Multiplicity != One && s.Multiplicity != Many {
		return configErrorf("field %q has invalid multiplicity %d", field, int(s.Multiplicity))
	}
	if s.Transform == nil {
		return configErrorf("field %q has no transform", field)
	}
	return nil
}

// Evaluate runs sel against page. Locator failures, transform errors and
// transform panics come back as *FieldExtractionError. No coercion is applied
// to the transform's value.
func Evaluate(ctx context.Context, page dom.Page, field string, sel Selector) (value any, err error) {
	nodes, err := page.Query(ctx, sel.Locator)
	if err != nil {
		return nil, &FieldExtractionError{Field: field, Err: err}
	}

	match := NewMatch(sel.Multiplicity, nodes).WithBaseURL(page.URL())

	defer func() {
		if r := recover(); r != nil {
			value = nil
			err = &FieldExtractionError{Field: field, Err: fmt.Errorf("transform panicked: %v", r)}
		}
	}()

	value, err = sel.Transform(match)
	if err != nil {
		return nil, &FieldExtractionError{Field: field, Err: err}
	}
	return value, nil
}
