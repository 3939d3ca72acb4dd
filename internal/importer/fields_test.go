package importer

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourline/internal/domain"
)

type sample struct {
	raw  string
	want any
}

var validSamples = map[Kind]sample{
	KindInt:    {"42", 42},
	KindShort:  {"7", int16(7)},
	KindLong:   {"1234567890123", int64(1234567890123)},
	KindFloat:  {"1.5", float32(1.5)},
	KindDouble: {"47.25", 47.25},
	KindBool:   {"true", true},
	KindString: {"abc", "abc"},
	KindTime:   {"2021-05-01T08:30:00Z", time.Date(2021, 5, 1, 8, 30, 0, 0, time.UTC)},
}

var defaultTypes = map[Kind]reflect.Type{
	KindInt:    reflect.TypeOf(0),
	KindShort:  reflect.TypeOf(int16(0)),
	KindLong:   reflect.TypeOf(int64(0)),
	KindFloat:  reflect.TypeOf(float32(0)),
	KindDouble: reflect.TypeOf(float64(0)),
	KindBool:   reflect.TypeOf(false),
	KindString: reflect.TypeOf(""),
	KindTime:   reflect.TypeOf(time.Time{}),
}

func assertValue(t *testing.T, want, got any, msg string) {
	t.Helper()
	if wt, ok := want.(time.Time); ok {
		gt, ok := got.(time.Time)
		require.True(t, ok, msg)
		assert.True(t, wt.Equal(gt), "%s: want %v, got %v", msg, wt, gt)
		return
	}
	assert.Equal(t, want, got, msg)
}

// checkTable runs every field of tb against a missing, a garbled and a valid value.
func checkTable[T any](t *testing.T, scope string, tb *Table[T], newT func() *T) {
	t.Helper()
	require.NotEmpty(t, tb.Fields(), scope)
	for _, f := range tb.Fields() {
		name := scope + "." + f.Name
		assert.Equal(t, defaultTypes[f.Kind], reflect.TypeOf(f.Default), name+" default type")

		target := newT()
		f.apply(target, "", false)
		assertValue(t, f.Default, f.value(target), name+" missing")

		if f.Kind != KindString {
			target = newT()
			f.apply(target, "garbled!", true)
			assertValue(t, f.Default, f.value(target), name+" garbled")
		}
		if f.Kind == KindFloat || f.Kind == KindDouble {
			for _, raw := range []string{"NaN", "Inf", "-Infinity"} {
				target = newT()
				f.apply(target, raw, true)
				assertValue(t, f.Default, f.value(target), name+" "+raw)
			}
		}

		s, ok := validSamples[f.Kind]
		require.True(t, ok, name)
		target = newT()
		f.apply(target, s.raw, true)
		assertValue(t, s.want, f.value(target), name+" valid")
	}
}

func zero[T any]() *T { return new(T) }

func TestDispatchTablesCoverEveryField(t *testing.T) {
	newIntake := func() *tourIntake { return &tourIntake{tour: &domain.Tour{}} }
	checkTable(t, "tour", tourAttrs, newIntake)
	checkTable(t, "tour leaf", tourLeaves, zero[domain.Tour])
	checkTable(t, "marker", markerAttrs, zero[domain.Marker])
	checkTable(t, "marker leaf", markerLeaves, zero[domain.Marker])
	checkTable(t, "waypoint", waypointAttrs, zero[domain.Waypoint])
	checkTable(t, "waypoint leaf", waypointLeaves, zero[domain.Waypoint])
	checkTable(t, "photo", photoAttrs, zero[domain.Photo])
	checkTable(t, "photo leaf", photoLeaves, zero[domain.Photo])
	checkTable(t, "sensorvalue", sensorValueAttrs, zero[domain.SensorReading])
	checkTable(t, "tourreference", tourReferenceAttrs, zero[domain.TourReference])
	checkTable(t, "tourreference leaf", tourReferenceLeaves, zero[domain.TourReference])
}

func TestTourTableSize(t *testing.T) {
	// 7 ordered fields, 10 heart rate zones and the scalar attributes
	assert.Len(t, tourAttrs.Fields(), 112)
}

func TestDefaultExceptions(t *testing.T) {
	cases := []struct {
		scope string
		field string
		want  any
		tb    interface {
			lookup(string) (any, bool)
		}
	}{
		{"tour", "restPulse", -1, defaults(tourAttrs)},
		{"tour", "calories", 0, defaults(tourAttrs)},
		{"marker", "isMarkerVisible", 1, defaults(markerAttrs)},
		{"marker", "time", -1, defaults(markerAttrs)},
		{"marker", "distance20", float32(-1), defaults(markerAttrs)},
		{"marker", "altitude", domain.UnsetFloat, defaults(markerAttrs)},
		{"marker", "latitude", domain.UnsetDouble, defaults(markerAttrs)},
		{"marker", "longitude", domain.UnsetDouble, defaults(markerAttrs)},
		{"sensorvalue", "batteryLevel_Start", int16(-1), defaults(sensorValueAttrs)},
		{"sensorvalue", "batteryStatus_End", int16(-1), defaults(sensorValueAttrs)},
		{"sensorvalue", "batteryVoltage_Start", float32(-1), defaults(sensorValueAttrs)},
		{"waypoint", "altitude", float32(0), defaults(waypointAttrs)},
	}
	for _, c := range cases {
		got, ok := c.tb.lookup(c.field)
		require.True(t, ok, c.scope+"."+c.field)
		assert.Equal(t, c.want, got, c.scope+"."+c.field)
	}
}

type defaultLookup[T any] struct{ tb *Table[T] }

func (d defaultLookup[T]) lookup(name string) (any, bool) {
	f, ok := d.tb.Lookup(name)
	return f.Default, ok
}

func defaults[T any](tb *Table[T]) defaultLookup[T] { return defaultLookup[T]{tb: tb} }

func TestApplyAttrsIgnoresUnknownNames(t *testing.T) {
	var m domain.Marker
	markerAttrs.ApplyAttrs(&m, map[string]string{"time": "12", "futureAttribute": "x"})
	assert.Equal(t, 12, m.Time)
	assert.Equal(t, 1, m.Visible)
	assert.False(t, markerLeaves.Set(&m, "futureLeaf", "x"))
}

func TestParseZonedTime(t *testing.T) {
	got, err := ParseZonedTime("2021-05-01T08:30+02:00[Europe/Berlin]")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2021, 5, 1, 6, 30, 0, 0, time.UTC)))
	assert.Equal(t, "Europe/Berlin", got.Location().String())

	got, err = ParseZonedTime("2021-05-01T08:30:15.250Z")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, time.Duration(got.Nanosecond()))

	_, err = ParseZonedTime("yesterday")
	assert.Error(t, err)
}

func TestSerieValues(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, serieValues("[1, 2, 3]"))
	assert.Nil(t, serieValues("[]"))
	assert.Equal(t, []float32{1.5, 0, 3}, parseAll(serieValues("[1.5, x, 3]"), parseFloat))
	assert.Equal(t, []float32{0, 0, 2}, parseAll(serieValues("[NaN, +Inf, 2]"), parseFloat))
}

// serieTarget returns the only slice field of sd that a setter filled.
func serieTarget(t *testing.T, name string, sd *domain.SerieData) (string, reflect.Value) {
	t.Helper()
	v := reflect.ValueOf(sd).Elem()
	var (
		field string
		got   reflect.Value
	)
	for i := 0; i < v.NumField(); i++ {
		fv := v.Field(i)
		if fv.Kind() != reflect.Slice || fv.IsNil() {
			continue
		}
		require.Empty(t, field, "%s fills more than one serie", name)
		field, got = v.Type().Field(i).Name, fv
	}
	require.NotEmpty(t, field, "%s fills no serie", name)
	return field, got
}

func TestSerieSettersParseEveryName(t *testing.T) {
	assert.Len(t, serieSetters, 29)
	owners := map[string]string{}
	for name, set := range serieSetters {
		var sd domain.SerieData
		set(&sd, []string{"garbled!"})
		field, got := serieTarget(t, name, &sd)
		if prev, ok := owners[field]; ok {
			t.Errorf("%s and %s both fill %s", prev, name, field)
		}
		owners[field] = name
		require.Equal(t, 1, got.Len(), name)
		assert.True(t, got.Index(0).IsZero(), name+" garbled")

		elem := got.Type().Elem()
		valid := "7"
		if elem.Kind() == reflect.Bool {
			valid = "true"
		}
		sd = domain.SerieData{}
		set(&sd, []string{valid, "garbled!"})
		_, got = serieTarget(t, name, &sd)
		require.Equal(t, 2, got.Len(), name)
		if elem.Kind() == reflect.Bool {
			assert.True(t, got.Index(0).Bool(), name+" valid")
		} else {
			want := reflect.ValueOf(7).Convert(elem).Interface()
			assert.Equal(t, want, got.Index(0).Interface(), name+" valid")
		}
		assert.True(t, got.Index(1).IsZero(), name+" garbled")

		if elem.Kind() == reflect.Float32 || elem.Kind() == reflect.Float64 {
			sd = domain.SerieData{}
			set(&sd, []string{"NaN", "Inf"})
			_, got = serieTarget(t, name, &sd)
			assert.True(t, got.Index(0).IsZero(), name+" NaN")
			assert.True(t, got.Index(1).IsZero(), name+" Inf")
		}
	}
}
