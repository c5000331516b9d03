package scraper

import (
	"encoding/json"
	"sort"
)

// Field is one extracted value. Err is set when extraction itself failed;
// a nil Value with nil Err means the transform legitimately produced nothing.
type Field struct {
	Value any
	Err   error
}

func (f Field) Failed() bool {
	return f.Err != nil
}

// Record is the structured result for one article URL. It is not touched by
// the scraper after it has been handed out.
type Record struct {
	URL    string
	Medium string
	Fields map[string]Field
}

// Get returns the value of a field that was extracted without error.
func (r *Record) Get(name string) (any, bool) {
	f, ok := r.Fields[name]
	if !ok || f.Failed() {
		return nil, false
	}
	return f.Value, true
}

// Err returns the extraction error of a field, if any.
func (r *Record) Err(name string) error {
	return r.Fields[name].Err
}

// Failed lists the names of failed fields in sorted order.
func (r *Record) Failed() []string {
	var names []string
	for name, f := range r.Fields {
		if f.Failed() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Values returns the successfully extracted values keyed by field name.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.Fields))
	for name, f := range r.Fields {
		if !f.Failed() {
			out[name] = f.Value
		}
	}
	return out
}

// MarshalJSON renders a flat object with url, medium and one key per field.
// Failed fields become {"error": "..."}.
func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+2)
	for name, f := range r.Fields {
		if f.Failed() {
			out[name] = map[string]string{"error": f.Err.Error()}
			continue
		}
		out[name] = f.Value
	}
	out["url"] = r.URL
	out["medium"] = r.Medium
	return json.Marshal(out)
}

// Result is the outcome for the URL at Index in the input list: either a
// Record or the error that failed the URL.
type Result struct {
	Index  int
	URL    string
	Record *Record
	Err    error
}

func (r Result) OK() bool {
	return r.Err == nil && r.Record != nil
}
