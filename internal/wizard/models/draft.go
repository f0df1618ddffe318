package models

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Draft maps field names to values. Values are string, bool or []string.
type Draft map[string]any

// Text returns a scalar field as text; absent fields read as "".
func (d Draft) Text(name string) string {
	switch v := d[name].(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// Set returns a multi-valued field; absent fields read as nil.
func (d Draft) Set(name string) []string {
	v, _ := d[name].([]string)
	return v
}

// Flag returns a boolean field.
func (d Draft) Flag(name string) bool {
	v, _ := d[name].(bool)
	return v
}

// Empty reports whether a field carries no user-visible value.
func (d Draft) Empty(name string) bool {
	switch v := d[name].(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []string:
		return len(v) == 0
	case bool:
		return false
	default:
		return true
	}
}

// Clone returns a deep copy.
func (d Draft) Clone() Draft {
	out := make(Draft, len(d))
	for k, v := range d {
		if s, ok := v.([]string); ok {
			v = slices.Clone(s)
		}
		out[k] = v
	}
	return out
}

// UnmarshalJSON restores []string values that JSON decodes as []any.
func (d *Draft) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Draft, len(raw))
	for k, v := range raw {
		switch tv := v.(type) {
		case string, bool:
			out[k] = tv
		case float64:
			out[k] = fmt.Sprint(tv)
		case []any:
			set := make([]string, 0, len(tv))
			for _, item := range tv {
				s, ok := item.(string)
				if !ok {
					return fmt.Errorf("field %q: set member %v is not a string", k, item)
				}
				set = append(set, s)
			}
			out[k] = set
		case nil:
		default:
			return fmt.Errorf("field %q: unsupported value %T", k, v)
		}
	}
	*d = out
	return nil
}
