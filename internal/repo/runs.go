package repo

import (
	"context"
	"database/sql"
	"errors"

	"tourline/internal/domain"
)

func (r Repo) InsertRun(ctx context.Context, run domain.ImportRun) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO import_runs(id,actor_id,started_at) VALUES (?,?,?)`, run.ID, run.ActorID, run.StartedAt)
	return err
}

// FinishRun stores the final counters of a run.
func (r Repo) FinishRun(ctx context.Context, run domain.ImportRun) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE import_runs SET finished_at=?, files=?, imported=?, duplicates=?, skipped=?, failed=? WHERE id=?`,
		run.FinishedAt, run.Files, run.Imported, run.Duplicates, run.Skipped, run.Failed, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const runColumns = `id,actor_id,started_at,COALESCE(finished_at,''),files,imported,duplicates,skipped,failed`

func scanRun(row interface{ Scan(...any) error }) (domain.ImportRun, error) {
	var run domain.ImportRun
	err := row.Scan(&run.ID, &run.ActorID, &run.StartedAt, &run.FinishedAt, &run.Files, &run.Imported, &run.Duplicates, &run.Skipped, &run.Failed)
	return run, err
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.ImportRun, error) {
	run, err := scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM import_runs WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrNotFound
	}
	return run, err
}

// ListRuns returns the most recent runs first.
func (r Repo) ListRuns(ctx context.Context, limit int) ([]domain.ImportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+runColumns+` FROM import_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ImportRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}
