package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"tourline/internal/domain"
)

// TourExists reports whether a tour with id is stored.
func (r Repo) TourExists(ctx context.Context, tx *sql.Tx, id domain.TourID) (bool, error) {
	var n int
	if err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(1) FROM tours WHERE id=?`, int64(id)).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// InsertTour stores a finalized tour with its tag links. The full aggregate is kept
// as JSON next to the columns used for listing.
func (r Repo) InsertTour(ctx context.Context, tx *sql.Tx, t *domain.Tour, importFile, runID, importedAt string) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tour: %w", err)
	}
	var typeID any
	if t.TourType != nil {
		typeID = t.TourType.ID
	}
	var start any
	if !t.StartTime.IsZero() {
		start = t.StartTime.UTC().Format(time.RFC3339)
	}
	q := r.q(tx)
	if _, err := q.ExecContext(ctx, `INSERT INTO tours(id,unique_key,title,start_time,time_zone_id,distance,elapsed,tour_type_id,import_file,run_id,payload_json,imported_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		int64(t.ID), t.UniqueKey, nullable(t.Title), start, nullable(t.TimeZoneID), t.TourDistance, t.ElapsedTime,
		typeID, nullable(importFile), nullable(runID), string(payload), importedAt); err != nil {
		return err
	}
	for _, tag := range t.Tags {
		if _, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO tour_tags(tour_id,tag_id) VALUES (?,?)`, int64(t.ID), tag.ID); err != nil {
			return err
		}
	}
	return nil
}

// GetTour loads the stored aggregate.
func (r Repo) GetTour(ctx context.Context, id domain.TourID) (*domain.Tour, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT payload_json FROM tours WHERE id=?`, int64(id)).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var t domain.Tour
	if err := json.Unmarshal([]byte(payload), &t); err != nil {
		return nil, fmt.Errorf("decode tour %d: %w", id, err)
	}
	t.SetTimeZoneID(t.TimeZoneID)
	return &t, nil
}

type TourFilters struct {
	Tag      string
	TourType string
	RunID    string
	Limit    int
	// Cursor is the id of the last tour of the previous page.
	Cursor domain.TourID
}

// ListTours returns tour summaries ordered by id descending.
func (r Repo) ListTours(ctx context.Context, f TourFilters) ([]domain.TourSummary, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Tag != "" {
		clauses = append(clauses, `t.id IN (SELECT tt.tour_id FROM tour_tags tt JOIN tags g ON g.id=tt.tag_id WHERE g.name=?)`)
		args = append(args, f.Tag)
	}
	if f.TourType != "" {
		clauses = append(clauses, "ty.name=?")
		args = append(args, f.TourType)
	}
	if f.RunID != "" {
		clauses = append(clauses, "t.run_id=?")
		args = append(args, f.RunID)
	}
	if f.Cursor > 0 {
		clauses = append(clauses, "t.id<?")
		args = append(args, int64(f.Cursor))
	}
	query := `SELECT t.id,COALESCE(t.title,''),COALESCE(t.start_time,''),COALESCE(t.time_zone_id,''),t.distance,t.elapsed,
COALESCE(ty.name,''),COALESCE(t.import_file,''),COALESCE(t.run_id,''),t.imported_at
FROM tours t LEFT JOIN tour_types ty ON ty.id=t.tour_type_id
WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY t.id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TourSummary
	for rows.Next() {
		var s domain.TourSummary
		var id int64
		if err := rows.Scan(&id, &s.Title, &s.StartTime, &s.TimeZoneID, &s.Distance, &s.ElapsedTime, &s.TourType, &s.ImportFile, &s.RunID, &s.ImportedAt); err != nil {
			return nil, err
		}
		s.ID = domain.TourID(id)
		res = append(res, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		tags, err := r.tourTagNames(ctx, res[i].ID)
		if err != nil {
			return nil, err
		}
		res[i].Tags = tags
	}
	return res, nil
}

func (r Repo) tourTagNames(ctx context.Context, id domain.TourID) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT g.name FROM tour_tags tt JOIN tags g ON g.id=tt.tag_id WHERE tt.tour_id=? ORDER BY g.name`, int64(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (r Repo) CountTours(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(1) FROM tours`).Scan(&n)
	return n, err
}
