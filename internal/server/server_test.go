package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourline/internal/config"
	"tourline/internal/db"
	"tourline/internal/domain"
	"tourline/internal/engine"
	"tourline/internal/migrate"
	"tourline/internal/repo"
)

const testSecret = "test-secret"

type testServer struct {
	URL    string
	Engine engine.Engine
	token  string
	client *http.Client
	close  func()
}

func (s *testServer) Close() { s.close() }

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()
	workspace := t.TempDir()
	if cfg == nil {
		cfg = config.Default()
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	token, err := signToken(testSecret, "tester", nil, time.Hour)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	ts := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		token:  token,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	t.Cleanup(ts.Close)
	return ts
}

func (s *testServer) authed() map[string]string {
	return map[string]string{"Authorization": "Bearer " + s.token}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

const rideDoc = `<?xml version="1.0" encoding="UTF-8"?>
<mt version="3"><tour tourStartTime="2021-05-01T08:30Z" tourDistance="1000" tourDeviceTime_Elapsed="3600">` +
	`<tourTitle>Ride</tourTitle><tags><name>alps</name></tags></tour></mt>`

func TestHealthIsOpen(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/health", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	assert.Contains(t, string(body), `"ok"`)
}

func TestRequestsNeedCredentials(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/tours", nil, nil)
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "unauthorized", envelope.Error.Code)

	res, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/tours", nil, map[string]string{"Authorization": "Bearer nope"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestImportAndQuery(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/imports", ImportRequest{FileName: "ride.mt", Content: rideDoc}, srv.authed())
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	var report engine.ImportReport
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 1, report.Run.Imported)
	assert.Equal(t, "tester", report.Run.ActorID)
	assert.True(t, report.NewTagWasCreated)
	require.Len(t, report.Files, 1)
	require.Len(t, report.Files[0].Imported, 1)
	tourID := report.Files[0].Imported[0]

	res, body = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/tours?tag=alps", nil, srv.authed())
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var tours paginatedTours
	require.NoError(t, json.Unmarshal(body, &tours))
	require.Len(t, tours.Items, 1)
	assert.Equal(t, tourID, tours.Items[0].ID)

	res, body = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/tours/"+strconv.FormatInt(int64(tourID), 10), nil, srv.authed())
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var tour domain.Tour
	require.NoError(t, json.Unmarshal(body, &tour))
	assert.Equal(t, "Ride", tour.Title)
	require.Len(t, tour.Tags, 1)

	res, body = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/events?type=tour.imported", nil, srv.authed())
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var evs paginatedEvents
	require.NoError(t, json.Unmarshal(body, &evs))
	require.Len(t, evs.Items, 1)
	assert.Equal(t, "Ride", evs.Items[0].Payload["title"])

	res, body = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/runs/"+report.Run.ID, nil, srv.authed())
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))

	// same upload again is a duplicate
	res, body = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/imports", ImportRequest{FileName: "ride.mt", Content: rideDoc}, srv.authed())
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, 1, report.Run.Duplicates)
	assert.False(t, report.FileProducedValidData)
}

func TestImportBase64(t *testing.T) {
	srv := newTestServer(t, nil)
	req := ImportRequest{FileName: "ride.mt", Content: base64.StdEncoding.EncodeToString([]byte(rideDoc)), Encoding: "base64"}
	res, body := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/imports", req, srv.authed())
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))

	req.Content = "%%%"
	res, _ = doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/imports", req, srv.authed())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestImportRequiresFileName(t *testing.T) {
	srv := newTestServer(t, nil)
	res, _ := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/imports", ImportRequest{Content: rideDoc}, srv.authed())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestGetUnknownTour(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/tours/42", nil, srv.authed())
	require.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, string(body), `"not_found"`)

	res, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/tours/abc", nil, srv.authed())
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSensorsWithAPIKey(t *testing.T) {
	srv := newTestServer(t, nil)
	ctx := context.Background()
	require.NoError(t, srv.Engine.Repo.InsertAPIKey(ctx, nil, domain.APIKey{
		ID:      "key-1",
		ActorID: "uploader",
		KeyHash: repo.HashAPIKey("secret-key"),
	}))
	headers := map[string]string{"X-Api-Key": "secret-key"}

	res, body := doJSON(t, srv.client, http.MethodPost, srv.URL+"/v0/sensors", CreateSensorRequest{SensorID: 7, Name: "HRM"}, headers)
	require.Equal(t, http.StatusCreated, res.StatusCode, string(body))

	res, body = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/sensors", nil, headers)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))
	var list sensorList
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, "HRM", list.Items[0].Name)

	res, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/sensors", nil, map[string]string{"X-Api-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestMetricsAndDocsAreOpen(t *testing.T) {
	srv := newTestServer(t, nil)
	res, body := doJSON(t, srv.client, http.MethodGet, srv.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "tourline_unresolved_sensors_total")

	res, body = doJSON(t, srv.client, http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "/v0/imports")
}

type hookRecorder struct {
	mu       sync.Mutex
	types    []string
	secrets  []string
	failures int
}

func (h *hookRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.failures > 0 {
			h.failures--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		h.types = append(h.types, r.Header.Get("X-Tourline-Event"))
		h.secrets = append(h.secrets, r.Header.Get("X-Tourline-Secret"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func TestWebhookDeliveryRetries(t *testing.T) {
	rec := &hookRecorder{failures: 1}
	hook := httptest.NewServer(rec.handler())
	defer hook.Close()

	cfg := config.Default()
	cfg.Webhooks = []config.Webhook{{URL: hook.URL, Secret: "s3", Events: []string{"tour.imported"}}}
	srv := newTestServer(t, cfg)
	ctx := context.Background()

	d := newWebhookDispatcher(srv.Engine, nil)
	require.NotNil(t, d)
	d.maxRetry = 10 * time.Second
	d.setCursor(0, 0)

	_, err := srv.Engine.ImportReader(ctx, "ride.mt", strings.NewReader(rideDoc), "tester")
	require.NoError(t, err)
	d.dispatchAll(ctx)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"tour.imported"}, rec.types)
	assert.Equal(t, []string{"s3"}, rec.secrets)
	assert.Equal(t, 0, rec.failures)
}

func TestWebhookClientErrorIsNotRetried(t *testing.T) {
	var calls int
	var mu sync.Mutex
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer hook.Close()

	cfg := config.Default()
	cfg.Webhooks = []config.Webhook{{URL: hook.URL}}
	srv := newTestServer(t, cfg)
	d := newWebhookDispatcher(srv.Engine, nil)
	err := d.deliver(context.Background(), cfg.Webhooks[0], domain.Event{ID: 1, Type: "tour.imported", Payload: `{}`})
	require.Error(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestWebhookBodyKeepsInvalidPayloadRaw(t *testing.T) {
	body := webhookBody(domain.Event{ID: 3, Type: "x", Payload: "not json"})
	assert.Equal(t, json.RawMessage("{}"), body.Payload)
	assert.Equal(t, "not json", body.PayloadRaw)
}

func TestOversizedBodyIsRejectedAfterAuth(t *testing.T) {
	srv := newTestServer(t, nil)
	handler, err := New(Config{Engine: srv.Engine, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret}, MaxUploadBytes: 30})
	require.NoError(t, err)
	big := strings.Repeat("x", int(maxRequestBytes(30))+1)

	post := func(headers map[string]string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v0/imports", strings.NewReader(big))
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	rec := post(nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(srv.authed())
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	var envelope struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "too_large", envelope.Error.Code)
}

func TestOpenAPIServedConcurrently(t *testing.T) {
	srv := newTestServer(t, nil)
	const readers = 8
	bodies := make([]string, readers)
	var wg sync.WaitGroup
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := srv.client.Get(srv.URL + "/v0/openapi.json")
			if !assert.NoError(t, err) {
				return
			}
			defer res.Body.Close()
			assert.Equal(t, http.StatusOK, res.StatusCode)
			data, _ := io.ReadAll(res.Body)
			bodies[i] = string(data)
		}(i)
	}
	wg.Wait()
	for i := 1; i < readers; i++ {
		assert.Equal(t, bodies[0], bodies[i])
	}
	assert.Contains(t, bodies[0], "bearerAuth")
	assert.Contains(t, bodies[0], "#/components/schemas/ApiError")
}
