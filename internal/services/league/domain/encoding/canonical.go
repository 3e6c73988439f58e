// Package encoding provides canonical serialization and content hashing.
//
// Every idempotency decision in the league (lock no-ops, re-lock conflicts,
// stale score detection, cost re-application) compares hashes produced here,
// so two semantically equal payloads must always encode identically.
package encoding

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"time"
)

// TimeLayout is the fixed textual form of every timestamp in canonical output.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// CanonicalJSON produces deterministic JSON: object keys sorted
// lexicographically at every depth, no insignificant whitespace, no HTML
// escaping, and time.Time values rendered in UTC using TimeLayout.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(normalizeTimes(reflect.ValueOf(v)))
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, raw); err != nil {
		return nil, fmt.Errorf("encode canonical: %w", err)
	}
	return buf.Bytes(), nil
}

// ContentHash computes a SHA-256 hash of the canonical JSON representation,
// truncated to 128 bits (32 hex characters).
func ContentHash(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", fmt.Errorf("canonical json: %w", err)
	}
	hash := sha256.Sum256(canonical)
	return hex.EncodeToString(hash[:16]), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return writeScalar(buf, val)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
	return nil
}

var timeType = reflect.TypeOf(time.Time{})

// normalizeTimes rewrites time values (at any depth) into their canonical
// string form so that equal instants in different zones hash identically.
// Structs are expanded through a JSON round trip only when they hold times,
// so custom marshalers on other types are preserved.
func normalizeTimes(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).UTC().Format(TimeLayout)
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		if v.Elem().Type() == timeType {
			return normalizeTimes(v.Elem())
		}
		if !containsTime(v.Elem().Type(), 0) {
			return v.Interface()
		}
		return normalizeTimes(v.Elem())
	case reflect.Map:
		if v.IsNil() || !containsTime(v.Type(), 0) {
			return v.Interface()
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalizeTimes(iter.Value())
		}
		return out
	case reflect.Slice, reflect.Array:
		if (v.Kind() == reflect.Slice && v.IsNil()) || !containsTime(v.Type(), 0) {
			return v.Interface()
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			out[i] = normalizeTimes(v.Index(i))
		}
		return out
	case reflect.Struct:
		if !containsTime(v.Type(), 0) {
			return v.Interface()
		}
		return structFields(v)
	default:
		return v.Interface()
	}
}

// structFields flattens a struct into a map honoring json tags (name,
// omitempty, "-") for exported fields.
func structFields(v reflect.Value) map[string]any {
	out := map[string]any{}
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := parseJSONTag(field)
		if skip {
			continue
		}
		fv := v.Field(i)
		if omitEmpty && fv.IsZero() {
			continue
		}
		out[name] = normalizeTimes(fv)
	}
	return out
}

func parseJSONTag(field reflect.StructField) (name string, omitEmpty bool, skip bool) {
	tag := field.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag == "" {
		return name, false, false
	}
	parts := bytes.Split([]byte(tag), []byte(","))
	if len(parts[0]) > 0 {
		name = string(parts[0])
	}
	for _, opt := range parts[1:] {
		if string(opt) == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}

func containsTime(t reflect.Type, depth int) bool {
	if depth > 8 {
		return false
	}
	if t == timeType {
		return true
	}
	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array, reflect.Map:
		return containsTime(t.Elem(), depth+1)
	case reflect.Interface:
		return true
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() && containsTime(t.Field(i).Type, depth+1) {
				return true
			}
		}
	}
	return false
}
