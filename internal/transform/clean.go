package transform

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"news-extractor/internal/scraper"
)

var spacesRe = regexp.MustCompile(`\s+`)

// NormalizeOptions control how article HTML is turned into plain text.
type NormalizeOptions struct {
	StripBlocks     []string
	TrimNBSP        bool
	CollapseSpaces  bool
	MaxPreviewChars int
}

// DefaultNormalizeOptions trims NBSP and collapses whitespace without
// truncating.
var DefaultNormalizeOptions = NormalizeOptions{TrimNBSP: true, CollapseSpaces: true}

// Normalizer cleans article HTML into readable text.
type Normalizer struct {
	opts  NormalizeOptions
	strip []*regexp.Regexp
}

func NewNormalizer(opts NormalizeOptions) *Normalizer {
	n := &Normalizer{opts: opts}
	for _, blockName := range opts.StripBlocks {
		name := regexp.QuoteMeta(blockName)
		patterns := []string{
			`<div[^>]*>(\s*<h\d[^>]*>` + name + `</h\d>|` + name + `)[^<]*(?:<[^>]*>)*?</div>`,
			`<section[^>]*>(\s*<h\d[^>]*>` + name + `</h\d>|` + name + `)[^<]*(?:<[^>]*>)*?</section>`,
			`<aside[^>]*>[^<]*` + name + `[^<]*(?:<[^>]*>)*?</aside>`,
		}
		for _, p := range patterns {
			n.strip = append(n.strip, regexp.MustCompile(`(?i)`+p))
		}
	}
	return n
}

// stripBlocks drops "related", "video" and similar blocks by heading text.
func (n *Normalizer) stripBlocks(html string) string {
	for _, re := range n.strip {
		html = re.ReplaceAllString(html, "")
	}
	return html
}

// CleanHTML removes scripts, navigation and ads and returns the remaining
// text.
func (n *Normalizer) CleanHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(n.stripBlocks(html)))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, noscript, .ads, [class*='advertisement']").Remove()

	text := doc.Text()
	if n.opts.TrimNBSP {
		text = strings.ReplaceAll(text, "\u00A0", " ")
	}
	if n.opts.CollapseSpaces {
		text = spacesRe.ReplaceAllString(text, " ")
	}
	return strings.TrimSpace(text)
}

// TruncatePreview shortens text to at most maxChars characters, cutting at
// the last space and appending an ellipsis. maxChars <= 0 falls back to the
// configured preview size; when that is unset text is returned unchanged.
func (n *Normalizer) TruncatePreview(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = n.opts.MaxPreviewChars
	}
	runes := []rune(text)
	if maxChars <= 0 || len(runes) <= maxChars {
		return text
	}

	truncated := runes[:maxChars-1]
	if lastSpace := strings.LastIndex(string(truncated), " "); lastSpace > 0 {
		return strings.TrimRight(string(truncated)[:lastSpace], " ") + "…"
	}
	return string(truncated) + "…"
}

// Clean turns the HTML of each matched node into normalized text. Under One
// the value is a string (nil when absent), under Many a list of strings.
// maxChars > 0 truncates each text.
func (n *Normalizer) Clean(maxChars int) scraper.Transform {
	return n.cleanTransform(func(text string) string {
		if maxChars > 0 {
			return n.TruncatePreview(text, maxChars)
		}
		return text
	})
}

// Preview is Clean that always truncates, to maxChars or, when that is 0,
// to the configured preview size.
func (n *Normalizer) Preview(maxChars int) scraper.Transform {
	return n.cleanTransform(func(text string) string {
		return n.TruncatePreview(text, maxChars)
	})
}

func (n *Normalizer) cleanTransform(finish func(string) string) scraper.Transform {
	return func(m scraper.Match) (any, error) {
		if m.Multiplicity() == scraper.One {
			node, ok := m.Node()
			if !ok {
				return nil, nil
			}
			return finish(n.CleanHTML(node.HTML())), nil
		}
		out := make([]string, 0, m.Len())
		for _, node := range m.Nodes() {
			out = append(out, finish(n.CleanHTML(node.HTML())))
		}
		return out, nil
	}
}
