package transform

import (
	"errors"
	"fmt"
	"reflect"

	"news-extractor/internal/scraper"
)

// ErrMissing is returned by Required when the field produced nothing.
var ErrMissing = errors.New("required value is missing")

// Required makes a field mandatory: an absent match, a nil value, an empty
// string or an empty list becomes an error wrapping ErrMissing.
func Required(t scraper.Transform) scraper.Transform {
	return func(m scraper.Match) (any, error) {
		if m.Absent() {
			return nil, fmt.Errorf("no node matched: %w", ErrMissing)
		}
		v, err := t(m)
		if err != nil {
			return nil, err
		}
		if isEmpty(v) {
			return nil, fmt.Errorf("empty value: %w", ErrMissing)
		}
		return v, nil
	}
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
