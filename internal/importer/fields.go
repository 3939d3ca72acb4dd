package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the semantic type of a table field. It decides how raw text is parsed.
type Kind int

const (
	KindInt Kind = iota + 1
	KindShort
	KindLong
	KindFloat
	KindDouble
	KindBool
	KindString
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindShort:
		return "short"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindTime:
		return "time"
	}
	return "unknown"
}

// Field binds one attribute or leaf name to a parser, a default and a setter on T.
// The default is written when the value is absent or does not parse.
type Field[T any] struct {
	Name    string
	Kind    Kind
	Default any

	apply func(t *T, raw string, present bool)
	value func(t *T) any
}

func bind[T, V any](name string, kind Kind, parse func(string) (V, error), def V, ptr func(*T) *V) Field[T] {
	return Field[T]{
		Name:    name,
		Kind:    kind,
		Default: def,
		apply: func(t *T, raw string, present bool) {
			v := def
			if present {
				if parsed, err := parse(raw); err == nil {
					v = parsed
				}
			}
			*ptr(t) = v
		},
		value: func(t *T) any { return *ptr(t) },
	}
}

func intField[T any](name string, def int, ptr func(*T) *int) Field[T] {
	return bind(name, KindInt, parseInt, def, ptr)
}

func shortField[T any](name string, def int16, ptr func(*T) *int16) Field[T] {
	return bind(name, KindShort, parseShort, def, ptr)
}

func longField[T any](name string, def int64, ptr func(*T) *int64) Field[T] {
	return bind(name, KindLong, parseLong, def, ptr)
}

func floatField[T any](name string, def float32, ptr func(*T) *float32) Field[T] {
	return bind(name, KindFloat, parseFloat, def, ptr)
}

func doubleField[T any](name string, def float64, ptr func(*T) *float64) Field[T] {
	return bind(name, KindDouble, parseDouble, def, ptr)
}

func boolField[T any](name string, ptr func(*T) *bool) Field[T] {
	return bind(name, KindBool, parseBool, false, ptr)
}

func stringField[T any](name string, ptr func(*T) *string) Field[T] {
	return bind(name, KindString, func(s string) (string, error) { return s, nil }, "", ptr)
}

func timeField[T any](name string, ptr func(*T) *time.Time) Field[T] {
	return bind(name, KindTime, ParseZonedTime, time.Time{}, ptr)
}

func parseInt(s string) (int, error) { return strconv.Atoi(strings.TrimSpace(s)) }

func parseShort(s string) (int16, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 16)
	return int16(v), err
}

func parseLong(s string) (int64, error) { return strconv.ParseInt(strings.TrimSpace(s), 10, 64) }

func parseFloat(s string) (float32, error) {
	v, err := parseFinite(s, 32)
	return float32(v), err
}

func parseDouble(s string) (float64, error) { return parseFinite(s, 64) }

// parseFinite rejects NaN and infinities; they cannot be stored.
func parseFinite(s string, bitSize int) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), bitSize)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid bool %q", s)
}

// ParseZonedTime parses an ISO-8601 timestamp with offset. A trailing region id in
// brackets, as in "2021-05-01T08:30+02:00[Europe/Berlin]", selects the location.
func ParseZonedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var zone string
	if i := strings.IndexByte(s, '['); i >= 0 && strings.HasSuffix(s, "]") {
		zone = s[i+1 : len(s)-1]
		s = s[:i]
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// zoned exports may omit seconds
		t, err = time.Parse("2006-01-02T15:04Z07:00", s)
		if err != nil {
			return time.Time{}, err
		}
	}
	if zone != "" {
		if loc, lerr := time.LoadLocation(zone); lerr == nil {
			t = t.In(loc)
		}
	}
	return t, nil
}

// Table is the dispatch table of one scope: field name to parse, default and setter.
type Table[T any] struct {
	fields []Field[T]
	byName map[string]int
}

func newTable[T any](fields ...Field[T]) *Table[T] {
	tb := &Table[T]{fields: fields, byName: make(map[string]int, len(fields))}
	for i, f := range fields {
		if _, dup := tb.byName[f.Name]; dup {
			panic("importer: duplicate table field " + f.Name)
		}
		tb.byName[f.Name] = i
	}
	return tb
}

func (tb *Table[T]) Lookup(name string) (Field[T], bool) {
	i, ok := tb.byName[name]
	if !ok {
		return Field[T]{}, false
	}
	return tb.fields[i], true
}

func (tb *Table[T]) Fields() []Field[T] { return tb.fields }

// ApplyAttrs writes every field of the table into t, taking the value from attrs
// when present and the field default otherwise. Names in attrs that the table does
// not know are ignored.
func (tb *Table[T]) ApplyAttrs(t *T, attrs map[string]string) {
	for _, f := range tb.fields {
		raw, ok := attrs[f.Name]
		f.apply(t, raw, ok)
	}
}

// Set applies a single present value. It reports false for unknown names.
func (tb *Table[T]) Set(t *T, name, raw string) bool {
	f, ok := tb.Lookup(name)
	if !ok {
		return false
	}
	f.apply(t, raw, true)
	return true
}
