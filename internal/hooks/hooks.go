// Package hooks provides page preparation steps that site files can name:
// dismissing overlays, waiting for lazy content and similar.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"news-extractor/internal/dom"
	"news-extractor/internal/scraper"
)

const scrollScript = `() => window.scrollTo(0, document.body.scrollHeight)`

// Click clicks the first node matching locator. With optional set a missing
// node is not an error, which suits cookie banners that only sometimes show.
func Click(locator string, optional bool) scraper.Hook {
	return scraper.NewHook("click "+locator, func(ctx context.Context, page dom.Page) error {
		c, ok := page.(dom.Clicker)
		if !ok {
			return unsupported("click", page)
		}
		err := c.Click(ctx, locator)
		if optional && errors.Is(err, dom.ErrNotFound) {
			return nil
		}
		return err
	})
}

// Remove deletes every node matching locator.
func Remove(locator string) scraper.Hook {
	return scraper.NewHook("remove "+locator, func(ctx context.Context, page dom.Page) error {
		r, ok := page.(dom.Remover)
		if !ok {
			return unsupported("remove", page)
		}
		return r.Remove(ctx, locator)
	})
}

// WaitFor blocks until locator matches, bounded by the hook timeout.
func WaitFor(locator string) scraper.Hook {
	return scraper.NewHook("wait "+locator, func(ctx context.Context, page dom.Page) error {
		w, ok := page.(dom.Waiter)
		if !ok {
			return unsupported("wait", page)
		}
		return w.WaitFor(ctx, locator)
	})
}

// Eval runs a script in the page.
func Eval(script string) scraper.Hook {
	return scraper.NewHook("eval", func(ctx context.Context, page dom.Page) error {
		e, ok := page.(dom.Evaluator)
		if !ok {
			return unsupported("eval", page)
		}
		return e.Eval(ctx, script)
	})
}

// Scroll scrolls to the bottom times times, pausing in between so lazy
// content can load.
func Scroll(times int, pause time.Duration) scraper.Hook {
	if times <= 0 {
		times = 1
	}
	return scraper.NewHook("scroll", func(ctx context.Context, page dom.Page) error {
		e, ok := page.(dom.Evaluator)
		if !ok {
			return unsupported("scroll", page)
		}
		for i := 0; i < times; i++ {
			if err := e.Eval(ctx, scrollScript); err != nil {
				return err
			}
			if err := sleep(ctx, pause); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sleep pauses for d.
func Sleep(d time.Duration) scraper.Hook {
	return scraper.NewHook("sleep "+d.String(), func(ctx context.Context, _ dom.Page) error {
		return sleep(ctx, d)
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func unsupported(action string, page dom.Page) error {
	return fmt.Errorf("%s on %T: %w", action, page, dom.ErrUnsupported)
}

// Spec is the site file form of a hook.
type Spec struct {
	Action   string        `yaml:"action"`
	Locator  string        `yaml:"locator"`
	Script   string        `yaml:"script"`
	Duration time.Duration `yaml:"duration"`
	Times    int           `yaml:"times"`
	Optional bool          `yaml:"optional"`
}

// Build turns a Spec into a hook.
func Build(s Spec) (scraper.Hook, error) {
	action := strings.ToLower(strings.TrimSpace(s.Action))
	needsLocator := action == "click" || action == "remove" || action == "wait"
	if needsLocator && strings.TrimSpace(s.Locator) == "" {
		return scraper.Hook{}, fmt.Errorf("hook %q requires a locator", action)
	}

	switch action {
	case "click":
		return Click(s.Locator, s.Optional), nil
	case "remove":
		return Remove(s.Locator), nil
	case "wait":
		return WaitFor(s.Locator), nil
	case "eval":
		if strings.TrimSpace(s.Script) == "" {
			return scraper.Hook{}, fmt.Errorf("hook \"eval\" requires a script")
		}
		return Eval(s.Script), nil
	case "scroll":
		return Scroll(s.Times, s.Duration), nil
	case "sleep":
		if s.Duration <= 0 {
			return scraper.Hook{}, fmt.Errorf("hook \"sleep\" requires a positive duration")
		}
		return Sleep(s.Duration), nil
	default:
		return scraper.Hook{}, fmt.Errorf("unknown hook action %q", s.Action)
	}
}

// BuildAll builds specs in order, reporting the position of the first bad one.
func BuildAll(specs []Spec) ([]scraper.Hook, error) {
	out := make([]scraper.Hook, 0, len(specs))
	for i, s := range specs {
		h, err := Build(s)
		if err != nil {
			return nil, fmt.Errorf("hooks[%d]: %w", i, err)
		}
		out = append(out, h)
	}
	return out, nil
}
