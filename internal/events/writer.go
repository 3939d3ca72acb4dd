package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

const (
	TypeImportFile      = "import.file"
	TypeImportFailed    = "import.failed"
	TypeTourImported    = "tour.imported"
	TypeTourDuplicate   = "tour.duplicate"
	TypeTagCreated      = "tag.created"
	TypeTourTypeCreated = "tourtype.created"
	TypeSensorUnknown   = "sensor.unresolved"
	TypeSensorAdded     = "sensor.added"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append writes one event row inside tx.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, runID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,run_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(runID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

// AppendStandalone writes one event in its own transaction.
func (w Writer) AppendStandalone(ctx context.Context, evtType, runID, entityKind, entityID, actorID string, payload EventPayload) error {
	tx, err := w.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := w.Append(ctx, tx, evtType, runID, entityKind, entityID, actorID, payload); err != nil {
		return err
	}
	return tx.Commit()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
