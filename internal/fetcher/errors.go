package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
)

// Kind classifies fetch failures the same way for both drivers.
type Kind int

const (
	// Timeout: the page did not load within its deadline.
	Timeout Kind = iota + 1
	// Unreachable: DNS, connection or navigation failure.
	Unreachable
	// HTTPStatus: the server answered with a status >= 400.
	HTTPStatus
	// Disallowed: robots.txt forbids the URL.
	Disallowed
)

func (k Kind) String() string {
	switch k {
	case Timeout:
		return "timeout"
	case Unreachable:
		return "unreachable"
	case HTTPStatus:
		return "http_status"
	case Disallowed:
		return "disallowed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// FetchError is returned by Navigate and Get for every failed fetch.
type FetchError struct {
	Kind       Kind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case HTTPStatus:
		return fmt.Sprintf("fetch %s: http status %d", e.URL, e.StatusCode)
	case Disallowed:
		return fmt.Sprintf("fetch %s: disallowed by robots.txt", e.URL)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, &FetchError{Kind: Timeout}) match on kind alone.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// IsKind reports whether err is a *FetchError of kind k.
func IsKind(err error, k Kind) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == k
}

func statusError(u string, code int) *FetchError {
	return &FetchError{Kind: HTTPStatus, URL: u, StatusCode: code}
}

// classify maps a transport or browser error onto a FetchError.
func classify(u string, err error) *FetchError {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if isTimeout(err) {
		return &FetchError{Kind: Timeout, URL: u, Err: err}
	}
	return &FetchError{Kind: Unreachable, URL: u, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "timeout") || strings.Contains(msg, "timed_out")
}
