// Package transform holds reusable field transforms and the name registry
// that site files refer to.
package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"news-extractor/internal/scraper"
)

// Factory builds a transform from site file arguments.
type Factory func(args []string) (scraper.Transform, error)

// Registry maps transform names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a registry holding the built-in transforms. norm backs
// the "clean" transform; nil means DefaultNormalizeOptions.
func NewRegistry(norm *Normalizer) *Registry {
	if norm == nil {
		norm = NewNormalizer(DefaultNormalizeOptions)
	}

	r := &Registry{factories: make(map[string]Factory)}
	r.Register("text", noArgs(Text))
	r.Register("texts", noArgs(Texts))
	r.Register("html", noArgs(HTML))
	r.Register("link", noArgs(Link))
	r.Register("links", noArgs(Links))
	r.Register("exists", noArgs(Exists))
	r.Register("count", noArgs(Count))
	r.Register("date", noArgs(Date))
	r.Register("readable", noArgs(Readable))
	r.Register("attr", func(args []string) (scraper.Transform, error) {
		if len(args) != 1 || args[0] == "" {
			return nil, fmt.Errorf("attr takes exactly one attribute name")
		}
		return Attr(args[0]), nil
	})
	r.Register("attrs", func(args []string) (scraper.Transform, error) {
		if len(args) != 1 || args[0] == "" {
			return nil, fmt.Errorf("attrs takes exactly one attribute name")
		}
		return Attrs(args[0]), nil
	})
	r.Register("time", func(args []string) (scraper.Transform, error) {
		if len(args) > 2 {
			return nil, fmt.Errorf("time takes at most an attribute and a layout")
		}
		var attr, layout string
		if len(args) > 0 {
			attr = args[0]
		}
		if len(args) > 1 {
			layout = args[1]
		}
		return Time(attr, layout), nil
	})
	r.Register("localdate", func(args []string) (scraper.Transform, error) {
		lang := "ru"
		if len(args) > 0 {
			lang = args[0]
		}
		return LocalDate(lang)
	})
	r.Register("clean", func(args []string) (scraper.Transform, error) {
		maxChars, err := maxCharsArg("clean", args)
		if err != nil {
			return nil, err
		}
		return norm.Clean(maxChars), nil
	})
	r.Register("preview", func(args []string) (scraper.Transform, error) {
		maxChars, err := maxCharsArg("preview", args)
		if err != nil {
			return nil, err
		}
		return norm.Preview(maxChars), nil
	})
	r.Register("join", func(args []string) (scraper.Transform, error) {
		sep := " "
		if len(args) > 0 {
			sep = args[0]
		}
		return Join(sep), nil
	})
	r.Register("contains", func(args []string) (scraper.Transform, error) {
		if len(args) != 1 || args[0] == "" {
			return nil, fmt.Errorf("contains takes exactly one value")
		}
		return Contains(args[0]), nil
	})
	return r
}

// Register adds or replaces a named transform.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(name)] = f
}

// Build resolves name with args. required wraps the result with Required.
func (r *Registry) Build(name string, args []string, required bool) (scraper.Transform, error) {
	if name == "" {
		name = "text"
	}

	r.mu.RLock()
	f, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown transform %q", name)
	}

	t, err := f(args)
	if err != nil {
		return nil, err
	}
	if required {
		t = Required(t)
	}
	return t, nil
}

// Names lists registered transforms in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func noArgs(t scraper.Transform) Factory {
	return func(args []string) (scraper.Transform, error) {
		if len(args) > 0 {
			return nil, fmt.Errorf("transform takes no arguments")
		}
		return t, nil
	}
}

func maxCharsArg(name string, args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s: invalid max_chars %q", name, args[0])
	}
	return n, nil
}
