package client

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Sanitize strips null values, empty strings and empty embedded references
// from a record before submission. The server only receives fields that were set.
func Sanitize(record any) (map[string]any, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	// numbers stay json.Number so ids above 2^53 keep every digit
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("record must encode to a JSON object: %w", err)
	}
	return cleanObject(fields), nil
}

func cleanObject(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if keep, cleaned := cleanValue(value); keep {
			out[key] = cleaned
		}
	}
	return out
}

func cleanValue(value any) (bool, any) {
	switch v := value.(type) {
	case nil:
		return false, nil
	case string:
		return v != "", v
	case map[string]any:
		if isEmptyReference(v) {
			return false, nil
		}
		return true, cleanObject(v)
	case []any:
		items := make([]any, 0, len(v))
		for _, item := range v {
			if obj, ok := item.(map[string]any); ok {
				items = append(items, cleanObject(obj))
				continue
			}
			items = append(items, item)
		}
		return true, items
	default:
		return true, v
	}
}

// isEmptyReference reports an embedded object whose id is blank or the -1 placeholder.
func isEmptyReference(obj map[string]any) bool {
	raw, ok := obj["id"]
	if !ok {
		return false
	}
	switch v := raw.(type) {
	case nil:
		return len(obj) == 1
	case string:
		return v == ""
	case json.Number:
		return v.String() == "-1"
	}
	return false
}
