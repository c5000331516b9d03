package scraper

import (
	"context"
	"fmt"
	"time"

	"news-extractor/internal/dom"
)

// HookFunc prepares a page before extraction, e.g. dismissing an overlay.
type HookFunc func(ctx context.Context, page dom.Page) error

// Hook is a named HookFunc. The name only shows up in errors and logs.
type Hook struct {
	Name string
	Fn   HookFunc
}

// NewHook wraps fn.
func NewHook(name string, fn HookFunc) Hook {
	return Hook{Name: name, Fn: fn}
}

// RunHooks applies hooks to page in declared order. Each hook is bounded by
// timeout when it is positive. The first failure stops the sequence and is
// returned as *HookError.
func RunHooks(ctx context.Context, page dom.Page, hooks []Hook, timeout time.Duration) error {
	for i, h := range hooks {
		if err := runHook(ctx, page, h, timeout); err != nil {
			return &HookError{Index: i, Name: h.Name, Err: err}
		}
	}
	return nil
}

func runHook(ctx context.Context, page dom.Page, h Hook, timeout time.Duration) error {
	if h.Fn == nil {
		return fmt.Errorf("hook has no function")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// The hook runs on its own goroutine so one that ignores ctx still
	// cannot hold up the run; its page is closed by the caller afterwards.
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("hook panicked: %v", r)
			}
		}()
		done <- h.Fn(ctx, page)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
			return ctx.Err()
		}
	}
}
