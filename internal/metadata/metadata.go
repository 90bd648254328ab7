// Package metadata holds the key/value annotation shape shared by every
// platform resource, together with the predicate used to query by it.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"onfleet-workers-go/internal/apperr"
)

// Type is the declared JSON type of a metadata value.
type Type string

// Supported metadata value types.
const (
	TypeBoolean Type = "boolean"
	TypeNumber  Type = "number"
	TypeString  Type = "string"
	TypeObject  Type = "object"
	TypeArray   Type = "array"
)

var allowedTypes = [...]Type{TypeBoolean, TypeNumber, TypeString, TypeObject, TypeArray}

// Valid checks if the Type is one of the supported types.
func (t Type) Valid() bool {
	for _, v := range allowedTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Visibility targets.
const (
	VisibleAPI       = "api"
	VisibleDashboard = "dashboard"
	VisibleWorker    = "worker"
)

// Entry is a single metadata annotation.
type Entry struct {
	Name       string          `json:"name"`
	Type       Type            `json:"type"`
	Subtype    Type            `json:"subtype,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	Visibility []string        `json:"visibility,omitempty"`
}

// New builds an entry of the given type by JSON-encoding v.
func New(name string, typ Type, v any) (Entry, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: metadata %q: %v", apperr.Invalid, name, err)
	}
	e := Entry{Name: name, Type: typ, Value: raw}
	if err := e.Validate(); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// String builds a string entry.
func String(name, v string) Entry {
	raw, _ := json.Marshal(v)
	return Entry{Name: name, Type: TypeString, Value: raw}
}

// Number builds a number entry.
func Number(name string, v float64) Entry {
	raw, _ := json.Marshal(v)
	return Entry{Name: name, Type: TypeNumber, Value: raw}
}

// Bool builds a boolean entry.
func Bool(name string, v bool) Entry {
	raw, _ := json.Marshal(v)
	return Entry{Name: name, Type: TypeBoolean, Value: raw}
}

// Decode unmarshals the entry value into dst.
func (e Entry) Decode(dst any) error {
	if len(e.Value) == 0 {
		return fmt.Errorf("metadata %q has no value", e.Name)
	}
	return json.Unmarshal(e.Value, dst)
}

// Validate checks that the entry is well formed and its value matches its type.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return fmt.Errorf("%w: metadata name is required", apperr.Invalid)
	}
	if !e.Type.Valid() {
		return fmt.Errorf("%w: metadata %q has unknown type %q", apperr.Invalid, e.Name, e.Type)
	}
	if e.Subtype != "" && (e.Type != TypeArray || !e.Subtype.Valid()) {
		return fmt.Errorf("%w: metadata %q has invalid subtype %q", apperr.Invalid, e.Name, e.Subtype)
	}
	for _, v := range e.Visibility {
		switch v {
		case VisibleAPI, VisibleDashboard, VisibleWorker:
		default:
			return fmt.Errorf("%w: metadata %q has unknown visibility %q", apperr.Invalid, e.Name, v)
		}
	}
	if len(e.Value) == 0 {
		return fmt.Errorf("%w: metadata %q has no value", apperr.Invalid, e.Name)
	}
	return e.checkValue()
}

func (e Entry) checkValue() error {
	var v any
	if err := json.Unmarshal(e.Value, &v); err != nil {
		return fmt.Errorf("%w: metadata %q: %v", apperr.Invalid, e.Name, err)
	}
	if !typeOf(v, e.Type) {
		return fmt.Errorf("%w: metadata %q value is not of type %s", apperr.Invalid, e.Name, e.Type)
	}
	if e.Subtype == "" {
		return nil
	}
	for _, item := range v.([]any) {
		if !typeOf(item, e.Subtype) {
			return fmt.Errorf("%w: metadata %q element is not of subtype %s", apperr.Invalid, e.Name, e.Subtype)
		}
	}
	return nil
}

func typeOf(v any, t Type) bool {
	switch t {
	case TypeBoolean:
		_, ok := v.(bool)
		return ok
	case TypeNumber:
		_, ok := v.(float64)
		return ok
	case TypeString:
		_, ok := v.(string)
		return ok
	case TypeObject:
		_, ok := v.(map[string]any)
		return ok
	case TypeArray:
		_, ok := v.([]any)
		return ok
	default:
		return false
	}
}

// ValidateAll validates every entry and rejects duplicate names.
func ValidateAll(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: duplicate metadata name %q", apperr.Invalid, e.Name)
		}
		seen[e.Name] = struct{}{}
	}
	return nil
}

// Clone returns a deep copy of entries.
func Clone(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		out[i].Value = bytes.Clone(e.Value)
		out[i].Visibility = append([]string(nil), e.Visibility...)
	}
	return out
}
