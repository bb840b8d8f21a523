// Package payload gives case-insensitive, ordered field access to decoded
// results-service JSON.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is one JSON object with its keys folded to lower case.
type Record map[string]any

// DecodeObject parses a top-level JSON object.
func DecodeObject(data []byte) (Record, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	rec, ok := v.(Record)
	if !ok {
		return nil, fmt.Errorf("decoding payload: expected object, got %T", v)
	}
	return rec, nil
}

// DecodeList parses a top-level JSON array of objects. Non-object elements
// are dropped.
func DecodeList(data []byte) ([]Record, error) {
	v, err := decode(data)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("decoding payload: expected array, got %T", v)
	}
	return records(items), nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return normalize(v), nil
}

// FromMap builds a Record from an arbitrary map, folding keys at every level.
func FromMap(m map[string]any) Record {
	return normalize(m).(Record)
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		rec := make(Record, len(t))
		for k, val := range t {
			rec[strings.ToLower(k)] = normalize(val)
		}
		return rec
	case Record:
		return t
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []Record:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	default:
		return v
	}
}

func records(items []any) []Record {
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(Record); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Raw returns the value stored under key, matched case-insensitively.
func (r Record) Raw(key string) (any, bool) {
	v, ok := r[strings.ToLower(key)]
	return v, ok
}

// First returns the first of keys whose value is present and non-empty, as
// text. Later keys are only consulted when earlier ones are missing, null or
// blank.
func (r Record) First(keys ...string) (string, bool) {
	for _, key := range keys {
		v, ok := r.Raw(key)
		if !ok {
			continue
		}
		if s, ok := text(v); ok {
			return s, true
		}
	}
	return "", false
}

// String is First without the presence flag.
func (r Record) String(keys ...string) string {
	s, _ := r.First(keys...)
	return s
}

// Int parses the first present non-empty value among keys as an integer.
func (r Record) Int(keys ...string) (int, bool) {
	s, ok := r.First(keys...)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return n, true
}

// Bool reports whether key holds a truthy value.
func (r Record) Bool(key string) bool {
	v, ok := r.Raw(key)
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case json.Number:
		return t.String() != "0"
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", "y":
			return true
		}
	}
	return false
}

// List returns the first of keys holding a non-empty JSON array, as records.
func (r Record) List(keys ...string) ([]Record, bool) {
	for _, key := range keys {
		v, ok := r.Raw(key)
		if !ok {
			continue
		}
		if items, ok := v.([]any); ok && len(items) > 0 {
			return records(items), true
		}
	}
	return nil, false
}

// Object returns the nested object stored under key.
func (r Record) Object(key string) (Record, bool) {
	v, ok := r.Raw(key)
	if !ok {
		return nil, false
	}
	rec, ok := v.(Record)
	return rec, ok
}

func text(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		if t {
			return "true", true
		}
		return "", false
	default:
		return "", false
	}
}
