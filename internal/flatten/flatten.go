// Package flatten converts nested JSON values into flat key-path to string maps.
package flatten

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseObject decodes a single JSON text and returns the decoded value when the
// top level is an object, or an error otherwise. Numbers are decoded as
// json.Number so their literal text survives flattening.
func ParseObject(line string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level JSON value is not an object: %T", v)
	}
	return obj, nil
}

// Flatten converts a decoded JSON object into a flat map. Object fields become
// dot-separated paths, array elements append "[i]" to the parent path, and
// leaf values are rendered as their literal text (numbers and booleans as
// written, null as "null", strings unquoted).
func Flatten(obj map[string]any) map[string]string {
	out := make(map[string]string)
	walk(obj, "", out)
	return out
}

func walk(v any, prefix string, out map[string]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			p := k
			if prefix != "" {
				p = prefix + "." + k
			}
			walk(child, p, out)
		}
	case []any:
		for i, child := range t {
			walk(child, fmt.Sprintf("%s[%d]", prefix, i), out)
		}
	default:
		out[prefix] = leafString(t)
	}
}

func leafString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		// Unreachable for values produced by encoding/json, kept for totality.
		return fmt.Sprintf("%v", t)
	}
}
