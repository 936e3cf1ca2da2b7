package model

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingField is returned when a required upstream key is absent
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is returned when an upstream value cannot be converted
	ErrInvalidField = errors.New("invalid field")
)

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}

func invalidField(name string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidField, name, err)
}

// flexInt decodes an integer that upstream sends either as a JSON number or as a
// numeric string. Set is false when the key was absent or null.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.TrimSpace(strings.Trim(string(b), `"`))
	if n, err := strconv.Atoi(s); err == nil {
		f.Value, f.Set = n, true
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not an integer: %s", string(b))
	}
	f.Value, f.Set = int(v), true
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// falsyToNull maps a heterogeneous upstream value to a NullString, treating every
// falsy form (absent, null, 0, "", false) as no value.
func falsyToNull(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return sql.NullString{}
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return sql.NullString{}
		}
		return sql.NullString{String: t, Valid: true}
	case float64:
		if t == 0 {
			return sql.NullString{}
		}
		return sql.NullString{String: strconv.FormatFloat(t, 'f', -1, 64), Valid: true}
	default:
		return sql.NullString{}
	}
}

func requireString(name string, s *string) (string, error) {
	if s == nil {
		return "", missingField(name)
	}
	return *s, nil
}
