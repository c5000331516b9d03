package scraper

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoLinks is returned when link collection yields nothing at all.
var ErrNoLinks = errors.New("no links could be collected")

// ConfigError reports an unusable FetchConfig. It is raised before any
// fetching starts and is fatal for the whole run.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid scraper config: " + e.Reason
}

func configErrorf(format string, args ...any) *ConfigError {
	return &ConfigError{Reason: fmt.Sprintf(format, args...)}
}

// HookError wraps the failure of a page preparation hook. The URL being
// processed is failed; the run continues.
type HookError struct {
	Index int
	Name  string
	Err   error
}

func (e *HookError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("hook %d (%s) failed: %v", e.Index, e.Name, e.Err)
	}
	return fmt.Sprintf("hook %d failed: %v", e.Index, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// FieldExtractionError reports that a field's locator or transform failed.
type FieldExtractionError struct {
	Field string
	Err   error
}

func (e *FieldExtractionError) Error() string {
	return fmt.Sprintf("field %q: %v", e.Field, e.Err)
}

func (e *FieldExtractionError) Unwrap() error {
	return e.Err
}

// StrictError fails a whole URL in strict mode when any field failed.
type StrictError struct {
	Errs []*FieldExtractionError
}

func (e *StrictError) Error() string {
	names := make([]string, 0, len(e.Errs))
	for _, fe := range e.Errs {
		names = append(names, fe.Field)
	}
	return "strict extraction failed for fields: " + strings.Join(names, ", ")
}

func (e *StrictError) Unwrap() []error {
	errs := make([]error, 0, len(e.Errs))
	for _, fe := range e.Errs {
		errs = append(errs, fe)
	}
	return errs
}
