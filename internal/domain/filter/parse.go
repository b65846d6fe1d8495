package filter

import (
	"encoding/json"
	"fmt"
	"strings"

	"ochotona/internal/core/apperror"
)

// Parse reads a "field:op:value" expression. The value may itself contain colons;
// null and not_null take no value. For in/nin the value is a comma-separated list.
func Parse(expr string) (Item, error) {
	parts := strings.SplitN(strings.TrimSpace(expr), ":", 3)
	if len(parts) < 2 || parts[0] == "" {
		return Item{}, invalid(expr, "expected field:operator:value")
	}

	item := Item{Field: parts[0], Operator: ComparisonType(strings.ToLower(parts[1]))}
	if !item.Operator.Valid() {
		return Item{}, invalid(expr, fmt.Sprintf("unknown operator %q", parts[1]))
	}
	if !item.Operator.NeedsValue() {
		return item, nil
	}
	if len(parts) < 3 {
		return Item{}, invalid(expr, "missing value")
	}

	if item.Operator == InList || item.Operator == NotInList {
		values := strings.Split(parts[2], ",")
		list := make([]any, 0, len(values))
		for _, v := range values {
			list = append(list, strings.TrimSpace(v))
		}
		item.Value = list
		return item, nil
	}
	item.Value = parts[2]
	return item, nil
}

// ParseAll parses every expression, failing on the first invalid one.
func ParseAll(exprs []string) ([]Item, error) {
	items := make([]Item, 0, len(exprs))
	for _, expr := range exprs {
		item, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// Encode renders items as the JSON array accepted by the filter query parameter.
func Encode(items []Item) (string, error) {
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Decode reads the filter query parameter.
func Decode(raw string) ([]Item, error) {
	var items []Item
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, apperror.NewValidation("invalid filter format (json expected)").WithCause(err)
	}
	for _, item := range items {
		if item.Field == "" || !item.Operator.Valid() {
			return nil, apperror.NewValidation("invalid filter item").
				WithDetail("field", item.Field).
				WithDetail("operator", string(item.Operator))
		}
	}
	return items, nil
}

func invalid(expr, reason string) error {
	return apperror.NewValidation("invalid filter: " + reason).WithDetail("filter", expr)
}
