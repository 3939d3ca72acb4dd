package tourlinesdk

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Tourline HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// ImportRun summarizes one import batch.
type ImportRun struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Files      int    `json:"files"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

// FileReport is the outcome for a single file of an import.
type FileReport struct {
	Path              string   `json:"path"`
	Status            string   `json:"status"`
	Imported          []int64  `json:"imported,omitempty"`
	Duplicates        []int64  `json:"duplicates,omitempty"`
	CreatedTags       []string `json:"created_tags,omitempty"`
	CreatedTourType   string   `json:"created_tour_type,omitempty"`
	UnresolvedSensors []int64  `json:"unresolved_sensors,omitempty"`
	Error             string   `json:"error,omitempty"`
}

type ImportReport struct {
	Run                   ImportRun    `json:"run"`
	Files                 []FileReport `json:"files"`
	FileProducedValidData bool         `json:"file_produced_valid_data"`
	NewTagWasCreated      bool         `json:"new_tag_was_created"`
	NewTypeWasCreated     bool         `json:"new_type_was_created"`
}

// TourSummary is the listing view of a tour.
type TourSummary struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title,omitempty"`
	StartTime   string   `json:"start_time,omitempty"`
	TimeZoneID  string   `json:"time_zone_id,omitempty"`
	Distance    float32  `json:"distance"`
	ElapsedTime int64    `json:"elapsed_time"`
	TourType    string   `json:"tour_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImportFile  string   `json:"import_file,omitempty"`
	RunID       string   `json:"run_id,omitempty"`
	ImportedAt  string   `json:"imported_at"`
}

// Tour represents the API tour model (partial).
type Tour struct {
	ID           int64     `json:"id"`
	UniqueKey    string    `json:"unique_key"`
	Title        string    `json:"title,omitempty"`
	StartTime    string    `json:"start_time"`
	ElapsedTime  int64     `json:"elapsed_time"`
	TourDistance float32   `json:"tour_distance"`
	TourType     *TourType `json:"tour_type,omitempty"`
	Tags         []Tag     `json:"tags,omitempty"`
}

type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type TourType struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type PaginatedTours struct {
	Items      []TourSummary `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// TourFilters narrows a tour listing. Zero values are ignored.
type TourFilters struct {
	Tag      string
	TourType string
	RunID    string
	Limit    int
	Cursor   string
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	RunID      string         `json:"run_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

// APIError captures non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tourline api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Import uploads an export document under fileName.
func (c *Client) Import(ctx context.Context, fileName string, content []byte) (ImportReport, error) {
	body := map[string]string{
		"file_name": fileName,
		"content":   base64.StdEncoding.EncodeToString(content),
		"encoding":  "base64",
	}
	var resp ImportReport
	err := c.do(ctx, http.MethodPost, "v0/imports", body, &resp)
	return resp, err
}

// ListTours returns one page of tours, newest first.
func (c *Client) ListTours(ctx context.Context, f TourFilters) (PaginatedTours, error) {
	q := url.Values{}
	if f.Tag != "" {
		q.Set("tag", f.Tag)
	}
	if f.TourType != "" {
		q.Set("tour_type", f.TourType)
	}
	if f.RunID != "" {
		q.Set("run_id", f.RunID)
	}
	if f.Limit > 0 {
		q.Set("limit", fmt.Sprint(f.Limit))
	}
	if f.Cursor != "" {
		q.Set("cursor", f.Cursor)
	}
	var resp PaginatedTours
	err := c.do(ctx, http.MethodGet, withQuery("v0/tours", q), nil, &resp)
	return resp, err
}

// GetTour fetches a tour by id.
func (c *Client) GetTour(ctx context.Context, id int64) (Tour, error) {
	var resp Tour
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("v0/tours/%d", id), nil, &resp)
	return resp, err
}

func (c *Client) ListTags(ctx context.Context) ([]Tag, error) {
	var resp struct {
		Items []Tag `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/tags", nil, &resp)
	return resp.Items, err
}

func (c *Client) ListTourTypes(ctx context.Context) ([]TourType, error) {
	var resp struct {
		Items []TourType `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "v0/tour-types", nil, &resp)
	return resp.Items, err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("v0/events", q), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
