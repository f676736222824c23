package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
)

// DateLayout and the two accepted time layouts. Dates and times travel and
// are stored as plain text so both database backends treat them the same.
const (
	DateLayout     = "2006-01-02"
	TimeLayout     = "15:04"
	TimeLayoutSecs = "15:04:05"
)

// Fields is a request body decoded one level deep. Keeping the values raw
// lets every entity tell "absent" apart from "null" apart from a value.
type Fields map[string]json.RawMessage

// DecodeFields parses a JSON object body.
func DecodeFields(body []byte) (Fields, error) {
	var raw Fields
	if err := json.Unmarshal(body, &raw); err != nil || raw == nil {
		return nil, apperror.ValidationFailed("body", "request body must be a JSON object")
	}
	return raw, nil
}

// Field is one optional attribute of a patch.
//
//	Set == false             the client did not mention the field
//	Set == true, Value nil   the client sent null: clear it
//	Set == true, Value != nil the client sent a value
type Field[T any] struct {
	Set   bool
	Value *T
}

// Some returns a Field carrying v.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

// Null returns a Field that clears the attribute.
func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

// applyPtr writes the field into a nullable attribute.
func (f Field[T]) applyPtr(dst **T) {
	if !f.Set {
		return
	}
	if f.Value == nil {
		*dst = nil
		return
	}
	v := *f.Value
	*dst = &v
}

// applyVal writes the field into a non-nullable attribute; null resets it
// to the zero value so validation can reject it.
func (f Field[T]) applyVal(dst *T) {
	if !f.Set {
		return
	}
	var zero T
	if f.Value == nil {
		*dst = zero
		return
	}
	*dst = *f.Value
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func decodeString(raw Fields, key string) (Field[string], error) {
	v, ok := raw[key]
	if !ok {
		return Field[string]{}, nil
	}
	if isNull(v) {
		return Null[string](), nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return Field[string]{}, apperror.ValidationFailed(key, fmt.Sprintf("%s must be a string", key))
	}
	return Some(strings.TrimSpace(s)), nil
}

// decodeText accepts a string or a bare number; numbers keep their literal
// spelling (a quantity of 2 is stored as "2").
func decodeText(raw Fields, key string) (Field[string], error) {
	v, ok := raw[key]
	if !ok {
		return Field[string]{}, nil
	}
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) > 0 && (trimmed[0] == '-' || (trimmed[0] >= '0' && trimmed[0] <= '9')) {
		var n json.Number
		if err := json.Unmarshal(trimmed, &n); err == nil {
			return Some(n.String()), nil
		}
	}
	return decodeString(raw, key)
}

// parseNumber accepts a JSON number or a string holding one.
func parseNumber(v json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// decodeLenientNumber never fails: a value that does not parse is dropped
// as if the client had not sent it.
func decodeLenientNumber(raw Fields, key string) Field[float64] {
	v, ok := raw[key]
	if !ok {
		return Field[float64]{}
	}
	if isNull(v) {
		return Null[float64]()
	}
	f, ok := parseNumber(v)
	if !ok {
		return Field[float64]{}
	}
	return Some(f)
}

// decodeStrictNumber rejects values that do not parse. An empty string
// clears the field.
func decodeStrictNumber(raw Fields, key string) (Field[float64], error) {
	v, ok := raw[key]
	if !ok {
		return Field[float64]{}, nil
	}
	if isNull(v) {
		return Null[float64](), nil
	}
	var s string
	if json.Unmarshal(v, &s) == nil && strings.TrimSpace(s) == "" {
		return Null[float64](), nil
	}
	f, ok := parseNumber(v)
	if !ok {
		return Field[float64]{}, apperror.ValidationFailed(key, fmt.Sprintf("%s must be a number", key))
	}
	return Some(f), nil
}

// decodeDate treats null like absence: a record always has a date.
func decodeDate(raw Fields, key string) (Field[string], error) {
	f, err := decodeString(raw, key)
	if err != nil || !f.Set {
		return f, err
	}
	if f.Value == nil {
		return Field[string]{}, nil
	}
	if !ValidDate(*f.Value) {
		return Field[string]{}, apperror.ValidationFailed(key, fmt.Sprintf("%s must be formatted as YYYY-MM-DD", key))
	}
	return f, nil
}

func decodeTime(raw Fields, key string) (Field[string], error) {
	f, err := decodeString(raw, key)
	if err != nil || !f.Set || f.Value == nil {
		return f, err
	}
	if *f.Value == "" {
		return Null[string](), nil
	}
	if !ValidTime(*f.Value) {
		return Field[string]{}, apperror.ValidationFailed(key, fmt.Sprintf("%s must be formatted as HH:MM or HH:MM:SS", key))
	}
	return f, nil
}

// decodeID treats an empty string like null.
func decodeID(raw Fields, key string) (Field[string], error) {
	f, err := decodeString(raw, key)
	if err != nil || !f.Set {
		return f, err
	}
	if f.Value != nil && *f.Value == "" {
		return Null[string](), nil
	}
	return f, nil
}

func decodeIDs(raw Fields, key string) ([]string, error) {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(v, &ids); err != nil {
		return nil, apperror.ValidationFailed(key, fmt.Sprintf("%s must be a list of ids", key))
	}
	out := ids[:0]
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

func decodeJSON[T any](raw Fields, key string) (Field[T], error) {
	v, ok := raw[key]
	if !ok {
		return Field[T]{}, nil
	}
	if isNull(v) {
		return Null[T](), nil
	}
	var out T
	if err := json.Unmarshal(v, &out); err != nil {
		return Field[T]{}, apperror.ValidationFailed(key, fmt.Sprintf("%s is malformed", key))
	}
	return Some(out), nil
}

// ValidDate reports whether s is a YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ValidTime reports whether s is HH:MM or HH:MM:SS.
func ValidTime(s string) bool {
	if _, err := time.Parse(TimeLayout, s); err == nil {
		return true
	}
	_, err := time.Parse(TimeLayoutSecs, s)
	return err == nil
}

func validNumber(p *float64) bool {
	return p == nil || !(math.IsNaN(*p) || math.IsInf(*p, 0))
}
