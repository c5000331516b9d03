package dom

import "strings"

// Language is the query language of a locator.
type Language int

const (
	CSS Language = iota
	XPath
)

func (l Language) String() string {
	if l == XPath {
		return "xpath"
	}
	return "css"
}

// SplitLocator detects the query language of a locator and returns the bare
// expression. An explicit "xpath:" or "css:" prefix wins; otherwise paths
// starting with "/", "./" or "(" are XPath.
func SplitLocator(locator string) (Language, string) {
	loc := strings.TrimSpace(locator)
	switch {
	case strings.HasPrefix(loc, "xpath:"):
		return XPath, strings.TrimSpace(strings.TrimPrefix(loc, "xpath:"))
	case strings.HasPrefix(loc, "css:"):
		return CSS, strings.TrimSpace(strings.TrimPrefix(loc, "css:"))
	case strings.HasPrefix(loc, "/"), strings.HasPrefix(loc, "./"), strings.HasPrefix(loc, "("):
		return XPath, loc
	default:
		return CSS, loc
	}
}
