package engine

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"tourline/internal/domain"
	"tourline/internal/importer"
	"tourline/internal/repo"
)

// txRegistries exposes the sqlite registries to the importer. Every lookup and
// insert runs on tx, so a rolled back file leaves no tags or types behind.
type txRegistries struct {
	repo repo.Repo
	tx   *sql.Tx
	now  func() string
}

func (r txRegistries) registries() importer.Registries {
	return importer.Registries{Tags: r, Types: r, Sensors: r, Imported: r}
}

func (r txRegistries) TagByName(ctx context.Context, name string) (domain.Tag, bool, error) {
	t, err := r.repo.GetTagByName(ctx, r.tx, name)
	return found(t, err)
}

func (r txRegistries) CreateTag(ctx context.Context, name string) (domain.Tag, error) {
	t := domain.Tag{ID: uuid.NewString(), Name: name, CreatedAt: r.now()}
	if err := r.repo.InsertTag(ctx, r.tx, t); err != nil {
		return domain.Tag{}, err
	}
	return t, nil
}

func (r txRegistries) TourTypeByName(ctx context.Context, name string) (domain.TourType, bool, error) {
	t, err := r.repo.GetTourTypeByName(ctx, r.tx, name)
	return found(t, err)
}

func (r txRegistries) CreateTourType(ctx context.Context, name string) (domain.TourType, error) {
	t := domain.TourType{ID: uuid.NewString(), Name: name, CreatedAt: r.now()}
	if err := r.repo.InsertTourType(ctx, r.tx, t); err != nil {
		return domain.TourType{}, err
	}
	return t, nil
}

func (r txRegistries) SensorBySensorID(ctx context.Context, sensorID int64) (domain.Sensor, bool, error) {
	s, err := r.repo.GetSensor(ctx, r.tx, sensorID)
	return found(s, err)
}

func (r txRegistries) IsImported(ctx context.Context, id domain.TourID) (bool, error) {
	return r.repo.TourExists(ctx, r.tx, id)
}

func found[T any](v T, err error) (T, bool, error) {
	var zero T
	if errors.Is(err, repo.ErrNotFound) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}
