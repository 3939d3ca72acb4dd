package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tourline/internal/config"
	"tourline/internal/domain"
	"tourline/internal/events"
	"tourline/internal/repo"
)

// AddSensor registers a sensor, or refreshes the descriptive fields of a known one.
// Imports only ever look sensors up, so this is the only way sensors are created.
func (e Engine) AddSensor(ctx context.Context, s domain.Sensor, actorID string) (domain.Sensor, error) {
	if s.SensorID == 0 {
		return domain.Sensor{}, errors.New("sensor_id is required")
	}
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return domain.Sensor{}, errors.New("sensor name is required")
	}
	unlock := e.lock()
	defer unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Sensor{}, err
	}
	defer tx.Rollback()
	if s.CreatedAt == "" {
		s.CreatedAt = e.nowString()
	}
	if err := e.Repo.UpsertSensor(ctx, tx, s); err != nil {
		return domain.Sensor{}, fmt.Errorf("upsert sensor: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.TypeSensorAdded, "", "sensor", strconv.FormatInt(s.SensorID, 10), actorOrDefault(actorID),
		events.EventPayload{"name": s.Name}); err != nil {
		return domain.Sensor{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Sensor{}, err
	}
	return e.Repo.GetSensor(ctx, nil, s.SensorID)
}

// SeedSensors registers the sensors listed in the workspace config. Sensors that
// are already stored unchanged are left alone.
func (e Engine) SeedSensors(ctx context.Context, sensors []config.Sensor, actorID string) error {
	for _, s := range sensors {
		want := domain.Sensor{
			SensorID:     s.SensorID,
			Name:         strings.TrimSpace(s.Name),
			Manufacturer: s.Manufacturer,
			Product:      s.Product,
			SerialNumber: s.SerialNumber,
		}
		have, err := e.Repo.GetSensor(ctx, nil, s.SensorID)
		if err == nil {
			want.CreatedAt = have.CreatedAt
			if have == want {
				continue
			}
		} else if !errors.Is(err, repo.ErrNotFound) {
			return err
		}
		if _, err := e.AddSensor(ctx, want, actorID); err != nil {
			return fmt.Errorf("seed sensor %d: %w", s.SensorID, err)
		}
	}
	return nil
}
