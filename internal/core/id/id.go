// Package id provides the server-assigned numeric identifier used by all entities.
package id

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ID is a server-assigned entity identifier.
// The zero value means the record has not been persisted yet.
type ID int64

// Nil returns the zero-value ID.
func Nil() ID {
	return 0
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == 0
}

// Parse converts string to ID with validation.
// Only positive integers are valid identifiers.
func Parse(s string) (ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("invalid id %q: must be positive", s)
	}
	return ID(n), nil
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the decimal form used in URLs and option matching.
func (i ID) String() string {
	return strconv.FormatInt(int64(i), 10)
}

// MarshalJSON encodes the zero ID as null so unsaved records carry no id.
func (i ID) MarshalJSON() ([]byte, error) {
	if i == 0 {
		return []byte("null"), nil
	}
	return []byte(i.String()), nil
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (i *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*i = 0
			return nil
		}
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*i = v
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*i = ID(n)
	return nil
}
