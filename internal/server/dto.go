package server

import (
	"encoding/json"

	"tourline/internal/domain"
)

// Request payloads

type ImportRequest struct {
	FileName string `json:"file_name" doc:"name recorded for the upload, e.g. ride.mt"`
	Content  string `json:"content" doc:"the export document"`
	Encoding string `json:"encoding,omitempty" enum:"text,base64" doc:"encoding of content; text when omitted"`
}

type CreateSensorRequest struct {
	SensorID     int64  `json:"sensor_id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
}

type DevLoginRequest struct {
	ActorID string   `json:"actor_id"`
	Scopes  []string `json:"scopes,omitempty"`
}

// Responses

type DevLoginResponse struct {
	Token string `json:"token"`
}

type paginatedTours struct {
	Items      []domain.TourSummary `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	RunID      string         `json:"run_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type tagList struct {
	Items []domain.Tag `json:"items"`
}

type tourTypeList struct {
	Items []domain.TourType `json:"items"`
}

type sensorList struct {
	Items []domain.Sensor `json:"items"`
}

type runList struct {
	Items []domain.ImportRun `json:"items"`
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		RunID:      e.RunID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil
	}
	return obj
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
