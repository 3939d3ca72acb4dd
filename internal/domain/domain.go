package domain

// TourType is a shared activity-type registry entry.
type TourType struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Tag is a shared tag registry entry.
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Sensor describes a known device sensor. Sensors are registered up front and only
// looked up during an import.
type Sensor struct {
	SensorID     int64  `json:"sensor_id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Product      string `json:"product,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	RunID      string `json:"run_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// ImportRun records one batch invocation of the import engine.
type ImportRun struct {
	ID         string `json:"id"`
	ActorID    string `json:"actor_id"`
	StartedAt  string `json:"started_at" format:"date-time"`
	FinishedAt string `json:"finished_at,omitempty" format:"date-time"`
	Files      int    `json:"files"`
	Imported   int    `json:"imported"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

// TourSummary is the listing view of a stored tour.
type TourSummary struct {
	ID          TourID   `json:"id"`
	Title       string   `json:"title,omitempty"`
	StartTime   string   `json:"start_time,omitempty" format:"date-time"`
	TimeZoneID  string   `json:"time_zone_id,omitempty"`
	Distance    float32  `json:"distance"`
	ElapsedTime int64    `json:"elapsed_time"`
	TourType    string   `json:"tour_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	ImportFile  string   `json:"import_file,omitempty"`
	RunID       string   `json:"run_id,omitempty"`
	ImportedAt  string   `json:"imported_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"-"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
