package metadata

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"onfleet-workers-go/internal/apperr"
)

// Filter is a metadata match predicate: every entry must be satisfied.
// An entry without Type matches any type, an entry without Value matches
// any value.
type Filter []Entry

// Validate checks the filter is usable as a query.
func (f Filter) Validate() error {
	if len(f) == 0 {
		return fmt.Errorf("%w: metadata filter is empty", apperr.Invalid)
	}
	for _, e := range f {
		if strings.TrimSpace(e.Name) == "" {
			return fmt.Errorf("%w: metadata filter name is required", apperr.Invalid)
		}
		if e.Type != "" && !e.Type.Valid() {
			return fmt.Errorf("%w: metadata filter %q has unknown type %q", apperr.Invalid, e.Name, e.Type)
		}
		if len(e.Value) == 0 {
			continue
		}
		var v any
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return fmt.Errorf("%w: metadata filter %q: %v", apperr.Invalid, e.Name, err)
		}
		if e.Type != "" && !typeOf(v, e.Type) {
			return fmt.Errorf("%w: metadata filter %q value is not of type %s", apperr.Invalid, e.Name, e.Type)
		}
	}
	return nil
}

// Matches reports whether entries satisfy every clause of f.
func Matches(entries []Entry, f Filter) bool {
	for _, clause := range f {
		if !anySatisfies(entries, clause) {
			return false
		}
	}
	return true
}

func anySatisfies(entries []Entry, clause Entry) bool {
	for _, e := range entries {
		if e.Name != clause.Name {
			continue
		}
		if clause.Type != "" && e.Type != clause.Type {
			continue
		}
		if len(clause.Value) > 0 && !jsonEqual(e.Value, clause.Value) {
			continue
		}
		return true
	}
	return false
}

// jsonEqual compares two JSON documents semantically, so 1 and 1.0 or
// differently ordered object keys are equal.
func jsonEqual(a, b json.RawMessage) bool {
	var va, vb any
	if err := json.Unmarshal(a, &va); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &vb); err != nil {
		return false
	}
	return reflect.DeepEqual(va, vb)
}

// Select returns the items whose metadata satisfies f, preserving order.
func Select[T any](items []T, entriesOf func(T) []Entry, f Filter) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if Matches(entriesOf(it), f) {
			out = append(out, it)
		}
	}
	return out
}
