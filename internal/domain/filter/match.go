package filter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Match reports whether the record satisfies every item.
func Match(record map[string]any, items []Item) bool {
	for _, item := range items {
		if !item.Match(record) {
			return false
		}
	}
	return true
}

// Apply returns the records that satisfy every item, in their original order.
func Apply[M ~map[string]any](records []M, items []Item) []M {
	if len(items) == 0 {
		return records
	}
	out := make([]M, 0, len(records))
	for _, r := range records {
		if Match(r, items) {
			out = append(out, r)
		}
	}
	return out
}

// Records converts typed records into their JSON field maps for matching.
func Records[T any](items []T) ([]map[string]any, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Match evaluates the item against one record.
func (it Item) Match(record map[string]any) bool {
	value, present := record[it.Field]
	value = scalar(value)
	empty := !present || value == nil || value == ""

	switch it.Operator {
	case IsNull:
		return empty
	case IsNotNull:
		return !empty
	case Equal:
		return !empty && equal(value, it.Value)
	case NotEqual:
		return empty || !equal(value, it.Value)
	case Less, LessOrEqual, Greater, GreaterOrEqual:
		if empty {
			return false
		}
		return ordered(it.Operator, compare(value, it.Value))
	case InList:
		return !empty && inList(value, it.Value)
	case NotInList:
		return empty || !inList(value, it.Value)
	case Contains:
		return !empty && strings.Contains(strings.ToLower(text(value)), strings.ToLower(text(it.Value)))
	case NotContains:
		return empty || !strings.Contains(strings.ToLower(text(value)), strings.ToLower(text(it.Value)))
	}
	return false
}

// scalar reduces a reference object to its id.
func scalar(v any) any {
	if obj, ok := v.(map[string]any); ok {
		return obj["id"]
	}
	return v
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return fmt.Sprint(v)
}

func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func equal(a, b any) bool {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			return x == y
		}
	}
	return strings.EqualFold(text(a), text(b))
}

// compare orders numerically when both sides are numbers, lexically otherwise.
func compare(a, b any) int {
	if x, ok := number(a); ok {
		if y, ok := number(b); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(text(a), text(b))
}

func ordered(op ComparisonType, cmp int) bool {
	switch op {
	case Less:
		return cmp < 0
	case LessOrEqual:
		return cmp <= 0
	case Greater:
		return cmp > 0
	case GreaterOrEqual:
		return cmp >= 0
	}
	return false
}

func inList(value, list any) bool {
	var options []any
	switch t := list.(type) {
	case []any:
		options = t
	case []string:
		for _, s := range t {
			options = append(options, s)
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			options = append(options, strings.TrimSpace(s))
		}
	default:
		options = []any{t}
	}
	for _, opt := range options {
		if equal(value, opt) {
			return true
		}
	}
	return false
}
