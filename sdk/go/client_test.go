package tourlinesdk

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportSendsBase64(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v0/imports", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"run":{"id":"r1","imported":1},"files":[{"path":"ride.mt","status":"parsed","imported":[7]}],"file_produced_valid_data":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL + "/")
	c.BearerToken = "tok"
	report, err := c.Import(context.Background(), "ride.mt", []byte("<mt/>"))
	require.NoError(t, err)

	assert.Equal(t, "ride.mt", got["file_name"])
	assert.Equal(t, "base64", got["encoding"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("<mt/>")), got["content"])
	assert.Equal(t, "r1", report.Run.ID)
	assert.True(t, report.FileProducedValidData)
	require.Len(t, report.Files, 1)
	assert.Equal(t, []int64{7}, report.Files[0].Imported)
}

func TestListToursEncodesFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/tours", r.URL.Path)
		assert.Equal(t, "alps & club", r.URL.Query().Get("tag"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "key", r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{"items":[{"id":3,"title":"Col","tags":["alps & club"]}],"next_cursor":"3"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	c.APIKey = "key"
	page, err := c.ListTours(context.Background(), TourFilters{Tag: "alps & club", Limit: 5})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, int64(3), page.Items[0].ID)
	assert.Equal(t, "3", page.NextCursor)
}

func TestAPIErrorCarriesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/tours/42", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":"not_found"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).GetTour(context.Background(), 42)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "not_found")
}

func TestListTags(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[{"id":"a","name":"alps"},{"id":"b","name":"club"}]}`))
	}))
	defer srv.Close()

	tags, err := New(srv.URL).ListTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "club", tags[1].Name)
}
