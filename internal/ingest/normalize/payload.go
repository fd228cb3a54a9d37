package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeObject parses a JSON object, keeping numbers as json.Number.
func DecodeObject(body []byte) (map[string]any, error) {
	var m map[string]any
	if err := decode(body, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// DecodeList parses a JSON array of objects. A bare object becomes a one-element list.
func DecodeList(body []byte) ([]map[string]any, error) {
	var raw any
	if err := decode(body, &raw); err != nil {
		return nil, err
	}
	return Objects(raw), nil
}

// Objects keeps the object elements of v, which may be a list or a single object.
func Objects(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	default:
		return nil
	}
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}
