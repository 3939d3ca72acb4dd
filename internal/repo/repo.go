package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"tourline/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q runs on tx when one is given and on the pool otherwise.
func (r Repo) q(tx *sql.Tx) querier {
	if tx != nil {
		return tx
	}
	return r.DB
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nowString() string { return time.Now().UTC().Format(time.RFC3339) }

func (r Repo) GetTagByName(ctx context.Context, tx *sql.Tx, name string) (domain.Tag, error) {
	var t domain.Tag
	err := r.q(tx).QueryRowContext(ctx, `SELECT id,name,created_at FROM tags WHERE name=?`, name).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTag(ctx context.Context, tx *sql.Tx, t domain.Tag) error {
	if t.CreatedAt == "" {
		t.CreatedAt = nowString()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO tags(id,name,created_at) VALUES (?,?,?)`, t.ID, t.Name, t.CreatedAt)
	return err
}

func (r Repo) ListTags(ctx context.Context) ([]domain.Tag, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) GetTourTypeByName(ctx context.Context, tx *sql.Tx, name string) (domain.TourType, error) {
	var t domain.TourType
	err := r.q(tx).QueryRowContext(ctx, `SELECT id,name,created_at FROM tour_types WHERE name=?`, name).Scan(&t.ID, &t.Name, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	return t, err
}

func (r Repo) InsertTourType(ctx context.Context, tx *sql.Tx, t domain.TourType) error {
	if t.CreatedAt == "" {
		t.CreatedAt = nowString()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO tour_types(id,name,created_at) VALUES (?,?,?)`, t.ID, t.Name, t.CreatedAt)
	return err
}

func (r Repo) ListTourTypes(ctx context.Context) ([]domain.TourType, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,name,created_at FROM tour_types ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TourType
	for rows.Next() {
		var t domain.TourType
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

const sensorColumns = `sensor_id,name,COALESCE(manufacturer,''),COALESCE(product,''),COALESCE(serial_number,''),created_at`

func (r Repo) GetSensor(ctx context.Context, tx *sql.Tx, sensorID int64) (domain.Sensor, error) {
	var s domain.Sensor
	err := r.q(tx).QueryRowContext(ctx, `SELECT `+sensorColumns+` FROM sensors WHERE sensor_id=?`, sensorID).
		Scan(&s.SensorID, &s.Name, &s.Manufacturer, &s.Product, &s.SerialNumber, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return s, ErrNotFound
	}
	return s, err
}

// UpsertSensor registers a sensor or refreshes its descriptive fields.
func (r Repo) UpsertSensor(ctx context.Context, tx *sql.Tx, s domain.Sensor) error {
	if s.CreatedAt == "" {
		s.CreatedAt = nowString()
	}
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO sensors(sensor_id,name,manufacturer,product,serial_number,created_at) VALUES (?,?,?,?,?,?)
ON CONFLICT(sensor_id) DO UPDATE SET name=excluded.name, manufacturer=excluded.manufacturer, product=excluded.product, serial_number=excluded.serial_number`,
		s.SensorID, s.Name, nullable(s.Manufacturer), nullable(s.Product), nullable(s.SerialNumber), s.CreatedAt)
	return err
}

func (r Repo) ListSensors(ctx context.Context) ([]domain.Sensor, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+sensorColumns+` FROM sensors ORDER BY sensor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Sensor
	for rows.Next() {
		var s domain.Sensor
		if err := rows.Scan(&s.SensorID, &s.Name, &s.Manufacturer, &s.Product, &s.SerialNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}
