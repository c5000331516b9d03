// Package dom defines the page and node contract shared by fetch drivers,
// hooks and the extraction engine, plus a static document implementation.
package dom

import (
	"context"
	"errors"
)

var (
	ErrUnsupported = errors.New("operation not supported by this page")
	ErrNotFound    = errors.New("no node matches locator")
	ErrClosed      = errors.New("page is closed")
)

// Node is a read-only view of one matched node.
type Node interface {
	// Text returns the concatenated text content, untrimmed.
	Text() string
	Attr(name string) (string, bool)
	// HTML returns the outer HTML of the node.
	HTML() string
}

// Page is a fetched page owned by the driver session that produced it.
// A Page is used by one goroutine at a time and must be closed by its owner.
type Page interface {
	URL() string
	Query(ctx context.Context, locator string) ([]Node, error)
	Close() error
}

// Clicker is implemented by pages that can dispatch clicks.
type Clicker interface {
	Click(ctx context.Context, locator string) error
}

// Remover is implemented by pages whose tree can be pruned.
type Remover interface {
	Remove(ctx context.Context, locator string) error
}

// Waiter is implemented by pages that can wait for a node to appear.
type Waiter interface {
	WaitFor(ctx context.Context, locator string) error
}

// Evaluator is implemented by pages that run scripts.
type Evaluator interface {
	Eval(ctx context.Context, script string) error
}
