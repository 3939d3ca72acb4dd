package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"tourline/internal/domain"
	"tourline/internal/engine"
	"tourline/internal/repo"
)

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body map[string]string `json:"body"`
	}, error) {
		return &struct {
			Body map[string]string `json:"body"`
		}{Body: map[string]string{"status": "ok"}}, nil
	})
}

func registerImports(api huma.API, e engine.Engine, maxBytes int64) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-import",
		Method:        http.MethodPost,
		Path:          "/imports",
		Summary:       "Import an uploaded export",
		DefaultStatus: http.StatusCreated,
		// base64 grows the document by a third
		MaxBodyBytes: maxRequestBytes(maxBytes),
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusRequestEntityTooLarge,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body ImportRequest `json:"body"`
	}) (*struct {
		Body engine.ImportReport `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		name := strings.TrimSpace(input.Body.FileName)
		if name == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "file_name is required", map[string]any{"field": "file_name"})
		}
		content := []byte(input.Body.Content)
		if input.Body.Encoding == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(input.Body.Content)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid base64 content", map[string]any{"field": "content"})
			}
			content = decoded
		}
		if int64(len(content)) > maxBytes {
			return nil, newAPIError(http.StatusRequestEntityTooLarge, "too_large", "upload exceeds size limit", map[string]any{"max_bytes": maxBytes})
		}
		report, err := e.ImportReader(ctx, name, bytes.NewReader(content), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		report.Files = orEmpty(report.Files)
		return &struct {
			Body engine.ImportReport `json:"body"`
		}{Body: report}, nil
	})
}

func registerTours(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tours",
		Method:      http.MethodGet,
		Path:        "/tours",
		Summary:     "List imported tours",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Tag      string `query:"tag"`
		TourType string `query:"tour_type"`
		RunID    string `query:"run_id"`
		Limit    int    `query:"limit" default:"50"`
		Cursor   string `query:"cursor"`
	}) (*struct {
		Body paginatedTours `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		f := repo.TourFilters{Tag: input.Tag, TourType: input.TourType, RunID: input.RunID, Limit: limit + 1}
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			f.Cursor = domain.TourID(parsed)
		}
		items, err := e.Repo.ListTours(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedTours{Items: orEmpty(items)}
		if len(items) > limit {
			resp.Items = items[:limit]
			resp.NextCursor = strconv.FormatInt(int64(items[limit-1].ID), 10)
		}
		return &struct {
			Body paginatedTours `json:"body"`
		}{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-tour",
		Method:      http.MethodGet,
		Path:        "/tours/{tour_id}",
		Summary:     "Get a tour with its collections",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		TourID string `path:"tour_id"`
	}) (*struct {
		Body *domain.Tour `json:"body"`
	}, error) {
		id, err := strconv.ParseInt(input.TourID, 10, 64)
		if err != nil {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid tour id", map[string]any{"tour_id": input.TourID})
		}
		t, err := e.Repo.GetTour(ctx, domain.TourID(id))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body *domain.Tour `json:"body"`
		}{Body: t}, nil
	})
}

func registerRegistries(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-tags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body tagList `json:"body"`
	}, error) {
		items, err := e.Repo.ListTags(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body tagList `json:"body"`
		}{Body: tagList{Items: orEmpty(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-tour-types",
		Method:      http.MethodGet,
		Path:        "/tour-types",
		Summary:     "List tour types",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body tourTypeList `json:"body"`
	}, error) {
		items, err := e.Repo.ListTourTypes(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body tourTypeList `json:"body"`
		}{Body: tourTypeList{Items: orEmpty(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-sensors",
		Method:      http.MethodGet,
		Path:        "/sensors",
		Summary:     "List registered sensors",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body sensorList `json:"body"`
	}, error) {
		items, err := e.Repo.ListSensors(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body sensorList `json:"body"`
		}{Body: sensorList{Items: orEmpty(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-sensor",
		Method:        http.MethodPost,
		Path:          "/sensors",
		Summary:       "Register a sensor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateSensorRequest `json:"body"`
	}) (*struct {
		Body domain.Sensor `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.AddSensor(ctx, domain.Sensor{
			SensorID:     input.Body.SensorID,
			Name:         input.Body.Name,
			Manufacturer: input.Body.Manufacturer,
			Product:      input.Body.Product,
			SerialNumber: input.Body.SerialNumber,
		}, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Sensor `json:"body"`
		}{Body: s}, nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		RunID      string `query:"run_id"`
		EntityKind string `query:"entity_kind" enum:"file,tour,tag,tour_type,sensor"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
		Cursor     string `query:"cursor"`
	}) (*struct {
		Body paginatedEvents `json:"body"`
	}, error) {
		limit := normalizeLimit(input.Limit)
		f := repo.EventFilters{Type: input.Type, RunID: input.RunID, EntityKind: input.EntityKind, EntityID: input.EntityID, Limit: limit + 1}
		if input.Cursor != "" {
			parsed, err := strconv.ParseInt(input.Cursor, 10, 64)
			if err != nil {
				return nil, newAPIError(http.StatusBadRequest, "bad_request", "invalid cursor", map[string]any{"cursor": input.Cursor})
			}
			f.Cursor = parsed
		}
		items, err := e.Repo.LatestEvents(ctx, f)
		if err != nil {
			return nil, handleError(err)
		}
		resp := paginatedEvents{Items: []EventResponse{}}
		if len(items) > limit {
			items = items[:limit]
			resp.NextCursor = strconv.FormatInt(items[limit-1].ID, 10)
		}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return &struct {
			Body paginatedEvents `json:"body"`
		}{Body: resp}, nil
	})
}

func registerRuns(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-runs",
		Method:      http.MethodGet,
		Path:        "/runs",
		Summary:     "List import runs",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*struct {
		Body runList `json:"body"`
	}, error) {
		items, err := e.Repo.ListRuns(ctx, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body runList `json:"body"`
		}{Body: runList{Items: orEmpty(items)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-run",
		Method:      http.MethodGet,
		Path:        "/runs/{run_id}",
		Summary:     "Get an import run",
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		RunID string `path:"run_id"`
	}) (*struct {
		Body domain.ImportRun `json:"body"`
	}, error) {
		run, err := e.Repo.GetRun(ctx, input.RunID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.ImportRun `json:"body"`
		}{Body: run}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	if !authCfg.AllowDevLogin {
		return
	}
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*struct {
		Body DevLoginResponse `json:"body"`
	}, error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		token, err := signToken(authCfg.JWTSecret, actor, input.Body.Scopes, 12*time.Hour)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return &struct {
			Body DevLoginResponse `json:"body"`
		}{Body: DevLoginResponse{Token: token}}, nil
	})
}
