package importer

import (
	"context"
	"fmt"
	"log/slog"

	"tourline/internal/domain"
)

type TagRegistry interface {
	TagByName(ctx context.Context, name string) (domain.Tag, bool, error)
	CreateTag(ctx context.Context, name string) (domain.Tag, error)
}

type TypeRegistry interface {
	TourTypeByName(ctx context.Context, name string) (domain.TourType, bool, error)
	CreateTourType(ctx context.Context, name string) (domain.TourType, error)
}

// SensorRegistry only looks sensors up. Sensors are never created by an import.
type SensorRegistry interface {
	SensorBySensorID(ctx context.Context, sensorID int64) (domain.Sensor, bool, error)
}

type ImportedIndex interface {
	IsImported(ctx context.Context, id domain.TourID) (bool, error)
}

// Registries are the shared collaborators of an import. Callers importing files
// concurrently must serialize access to them.
type Registries struct {
	Tags     TagRegistry
	Types    TypeRegistry
	Sensors  SensorRegistry
	Imported ImportedIndex
}

// resolveType looks the pending type name up and creates it on a miss. A tour
// without a pending type name keeps no type.
func resolveType(ctx context.Context, name *string, reg TypeRegistry) (*domain.TourType, bool, error) {
	if name == nil {
		return nil, false, nil
	}
	tt, ok, err := reg.TourTypeByName(ctx, *name)
	if err != nil {
		return nil, false, fmt.Errorf("lookup tour type %q: %w", *name, err)
	}
	if ok {
		return &tt, false, nil
	}
	tt, err = reg.CreateTourType(ctx, *name)
	if err != nil {
		return nil, false, fmt.Errorf("create tour type %q: %w", *name, err)
	}
	return &tt, true, nil
}

// resolveTags resolves every pending tag name independently. created lists the
// tags that did not exist before.
func resolveTags(ctx context.Context, names []string, reg TagRegistry) (tags, created []domain.Tag, err error) {
	for _, name := range names {
		tag, ok, err := reg.TagByName(ctx, name)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup tag %q: %w", name, err)
		}
		if !ok {
			tag, err = reg.CreateTag(ctx, name)
			if err != nil {
				return nil, nil, fmt.Errorf("create tag %q: %w", name, err)
			}
			created = append(created, tag)
		}
		tags = append(tags, tag)
	}
	return tags, created, nil
}

// resolveSensors attaches registry sensors to the readings. Unknown ids are logged
// and returned; their readings stay attached without a sensor.
func resolveSensors(ctx context.Context, readings []domain.SensorReading, reg SensorRegistry, log *slog.Logger, path string) ([]int64, error) {
	var unresolved []int64
	for i := range readings {
		r := &readings[i]
		var (
			sensor domain.Sensor
			ok     bool
			err    error
		)
		if reg != nil {
			sensor, ok, err = reg.SensorBySensorID(ctx, r.SensorID)
			if err != nil {
				return nil, fmt.Errorf("lookup sensor %d: %w", r.SensorID, err)
			}
		}
		if !ok {
			log.Warn("sensor not found", "path", path, "sensor_id", r.SensorID)
			r.Sensor = nil
			unresolved = append(unresolved, r.SensorID)
			continue
		}
		r.Sensor = &sensor
	}
	return unresolved, nil
}
