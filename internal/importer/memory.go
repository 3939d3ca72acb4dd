package importer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourline/internal/domain"
)

// MemoryRegistry implements every registry interface in memory. It backs dry runs
// and tests; stored workspaces use the sqlite registries.
type MemoryRegistry struct {
	mu       sync.Mutex
	tags     map[string]domain.Tag
	types    map[string]domain.TourType
	sensors  map[int64]domain.Sensor
	imported map[domain.TourID]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tags:     map[string]domain.Tag{},
		types:    map[string]domain.TourType{},
		sensors:  map[int64]domain.Sensor{},
		imported: map[domain.TourID]struct{}{},
	}
}

// Registries wires m into every slot.
func (m *MemoryRegistry) Registries() Registries {
	return Registries{Tags: m, Types: m, Sensors: m, Imported: m}
}

func (m *MemoryRegistry) TagByName(_ context.Context, name string) (domain.Tag, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tags[name]
	return t, ok, nil
}

func (m *MemoryRegistry) CreateTag(_ context.Context, name string) (domain.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.Tag{ID: uuid.NewString(), Name: name, CreatedAt: now()}
	m.tags[name] = t
	return t, nil
}

func (m *MemoryRegistry) TourTypeByName(_ context.Context, name string) (domain.TourType, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[name]
	return t, ok, nil
}

func (m *MemoryRegistry) CreateTourType(_ context.Context, name string) (domain.TourType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := domain.TourType{ID: uuid.NewString(), Name: name, CreatedAt: now()}
	m.types[name] = t
	return t, nil
}

func (m *MemoryRegistry) SensorBySensorID(_ context.Context, id int64) (domain.Sensor, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sensors[id]
	return s, ok, nil
}

func (m *MemoryRegistry) AddSensor(s domain.Sensor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sensors[s.SensorID] = s
}

func (m *MemoryRegistry) IsImported(_ context.Context, id domain.TourID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.imported[id]
	return ok, nil
}

// MarkImported adds ids to the already-imported index.
func (m *MemoryRegistry) MarkImported(ids ...domain.TourID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		m.imported[id] = struct{}{}
	}
}

// TagCount and TourTypeCount report registry sizes.
func (m *MemoryRegistry) TagCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tags)
}

func (m *MemoryRegistry) TourTypeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.types)
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }
