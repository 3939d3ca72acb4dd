package tourxml_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourline/internal/tourxml"
)

func drain(t *testing.T, doc string) ([]tourxml.Event, error) {
	t.Helper()
	r := tourxml.NewReader(strings.NewReader(doc))
	var out []tourxml.Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}

func TestReaderEmitsScopes(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<!-- export -->
<mt version="1">
  <tour tourTitle="x" calories="12">
    <tourTitle>Morning &amp; run</tourTitle>
    <markers><marker time="3"/></markers>
  </tour>
</mt>`
	events, err := drain(t, doc)
	require.NoError(t, err)

	var kinds []string
	for _, ev := range events {
		kinds = append(kinds, ev.Kind.String()+":"+ev.Name)
	}
	assert.Equal(t, []string{
		"enter:mt",
		"enter:tour",
		"enter:tourTitle",
		"text:tourTitle",
		"exit:tourTitle",
		"enter:markers",
		"enter:marker",
		"exit:marker",
		"exit:markers",
		"exit:tour",
		"exit:mt",
	}, kinds)

	assert.Equal(t, "12", events[1].Attrs["calories"])
	assert.Equal(t, "Morning & run", events[3].Text)
	assert.Equal(t, "3", events[6].Attrs["time"])
}

func TestReaderStripsNamespacePrefix(t *testing.T) {
	events, err := drain(t, `<x:mt xmlns:x="urn:x"><x:tour x:calories="1"></x:tour></x:mt>`)
	require.NoError(t, err)
	require.Len(t, events, 4)
	assert.Equal(t, "mt", events[0].Name)
	assert.Equal(t, "tour", events[1].Name)
	assert.Equal(t, "1", events[1].Attrs["calories"])
	assert.Equal(t, "tour", events[2].Name)
}

func TestReaderTruncated(t *testing.T) {
	_, err := drain(t, `<mt><tour calories="1"><markers>`)
	require.Error(t, err)
	assert.ErrorIs(t, err, tourxml.ErrTruncated)
}

func TestReaderUnbalanced(t *testing.T) {
	_, err := drain(t, `<mt><tour></markers></tour></mt>`)
	require.Error(t, err)
	assert.ErrorIs(t, err, tourxml.ErrUnbalanced)
}

func TestHasSignature(t *testing.T) {
	cases := map[string]bool{
		`<?xml version="1.0"?><mt version="3">`: true,
		"<mt>":                                  true,
		"<mt/>":                                 true,
		"<mt\n>":                                true,
		"<mtx>":                                 false,
		"<gpx><mt":                              false,
		"":                                      false,
		`<?xml version="1.0"?><gpx>`:            false,
	}
	for in, want := range cases {
		assert.Equal(t, want, tourxml.HasSignature([]byte(in)), in)
	}
}

func TestSniffReplaysPeekedBytes(t *testing.T) {
	doc := `<mt><tour/></mt>`
	r, ok, err := tourxml.Sniff(strings.NewReader(doc), 4)
	require.NoError(t, err)
	assert.True(t, ok)
	rest, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, doc, string(rest))
}

func TestSniffOutsideWindow(t *testing.T) {
	doc := strings.Repeat(" ", 64) + `<mt></mt>`
	_, ok, err := tourxml.Sniff(strings.NewReader(doc), 16)
	require.NoError(t, err)
	assert.False(t, ok)
}
