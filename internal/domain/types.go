package domain

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
)

type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return nil
	}

	if len(data) == 0 || string(data) == "null" {
		*s = nil
		return nil
	}

	return json.Unmarshal(data, (*[]string)(s))
}

// RawJSON stores a JSON document verbatim in a TEXT column.
type RawJSON []byte

func (r RawJSON) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return string(r), nil
}

func (r *RawJSON) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = nil
	case []byte:
		*r = append(RawJSON(nil), v...)
	case string:
		*r = RawJSON(v)
	default:
		return fmt.Errorf("unsupported type for RawJSON: %T", value)
	}
	return nil
}

func (r RawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func (r *RawJSON) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = nil
		return nil
	}
	*r = append((*r)[0:0], data...)
	return nil
}

// ListOrString accepts a JSON string, number, or array and always holds a list.
type ListOrString []string

func (l *ListOrString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []FlexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			out = append(out, string(it))
		}
		*l = out
		return nil
	}
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	*l = ListOrString{string(s)}
	return nil
}

// First returns the first element or "".
func (l ListOrString) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// FlexString accepts strings, numbers and booleans. Arrays collapse to their first element.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || string(data) == "null":
		*s = ""
	case data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = FlexString(v)
	case data[0] == '[':
		var l ListOrString
		if err := l.UnmarshalJSON(data); err != nil {
			return err
		}
		*s = FlexString(l.First())
	case data[0] == '{':
		return fmt.Errorf("cannot decode object into string")
	default:
		*s = FlexString(data)
	}
	return nil
}

// FlexBool accepts true/false as booleans or strings.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "true", "1", "yes":
		*b = true
	default:
		*b = false
	}
	return nil
}

// FlexFloat is an optional number that may arrive quoted.
type FlexFloat struct {
	Value float64
	Valid bool
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	var s FlexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = FlexFloat{}
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(s)), 64)
	if err != nil {
		*f = FlexFloat{}
		return nil
	}
	*f = FlexFloat{Value: v, Valid: true}
	return nil
}

func (f FlexFloat) Ptr() *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

// FlexInt is an optional integer that may arrive quoted or as a float.
type FlexInt struct {
	Value int64
	Valid bool
}

func (i *FlexInt) UnmarshalJSON(data []byte) error {
	var f FlexFloat
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*i = FlexInt{Value: int64(f.Value), Valid: f.Valid}
	return nil
}

func (i FlexInt) Ptr() *int64 {
	if !i.Valid {
		return nil
	}
	v := i.Value
	return &v
}
