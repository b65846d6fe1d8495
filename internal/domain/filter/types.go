// Package filter evaluates list filters against JSON-shaped records.
package filter

// ComparisonType names a comparison.
type ComparisonType string

const (
	Equal          ComparisonType = "eq"        // equal
	NotEqual       ComparisonType = "neq"       // not equal
	Less           ComparisonType = "lt"        // less than
	LessOrEqual    ComparisonType = "lte"       // less or equal
	Greater        ComparisonType = "gt"        // greater than
	GreaterOrEqual ComparisonType = "gte"       // greater or equal
	InList         ComparisonType = "in"        // one of a list
	NotInList      ComparisonType = "nin"       // none of a list
	Contains       ComparisonType = "contains"  // case-insensitive substring
	NotContains    ComparisonType = "ncontains" // no case-insensitive substring

	IsNull    ComparisonType = "null"     // missing, null or empty
	IsNotNull ComparisonType = "not_null" // set
)

// Valid reports whether the comparison is known.
func (c ComparisonType) Valid() bool {
	switch c {
	case Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual,
		InList, NotInList, Contains, NotContains, IsNull, IsNotNull:
		return true
	}
	return false
}

// NeedsValue is false for the null checks.
func (c ComparisonType) NeedsValue() bool {
	return c != IsNull && c != IsNotNull
}

// Item is one filter row.
type Item struct {
	Field    string         `json:"field"`    // JSON field name; a reference compares by its id
	Operator ComparisonType `json:"operator"` // comparison
	Value    any            `json:"value"`    // string, number or list
}
