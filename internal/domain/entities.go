package domain

// Sentinels for geo values that were never recorded.
const (
	UnsetFloat  float32 = -1e35
	UnsetDouble float64 = -1e35
)

// Marker is a labelled point of interest along a tour. All fields are comparable so
// that markers with identical content collapse in a set.
type Marker struct {
	Label         string  `json:"label,omitempty"`
	Description   string  `json:"description,omitempty"`
	URLText       string  `json:"url_text,omitempty"`
	URLAddress    string  `json:"url_address,omitempty"`
	LabelXOffset  int     `json:"label_x_offset"`
	LabelYOffset  int     `json:"label_y_offset"`
	LabelPosition int     `json:"label_position"`
	SerieIndex    int     `json:"serie_index"`
	Time          int     `json:"time"`
	TourTime      int64   `json:"tour_time"`
	Visible       int     `json:"visible"`
	Type          int     `json:"type"`
	Altitude      float32 `json:"altitude"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Distance      float32 `json:"distance"`
}

type Waypoint struct {
	Name        string  `json:"name,omitempty"`
	Category    string  `json:"category,omitempty"`
	Comment     string  `json:"comment,omitempty"`
	Description string  `json:"description,omitempty"`
	Symbol      string  `json:"symbol,omitempty"`
	URLText     string  `json:"url_text,omitempty"`
	URLAddress  string  `json:"url_address,omitempty"`
	Altitude    float32 `json:"altitude"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Time        int64   `json:"time"`
}

type Photo struct {
	FilePathName          string  `json:"file_path_name,omitempty"`
	ImageExifTime         int64   `json:"image_exif_time"`
	ImageFileLastModified int64   `json:"image_file_last_modified"`
	AdjustedTime          int64   `json:"adjusted_time"`
	IsGeoFromPhoto        int     `json:"is_geo_from_photo"`
	RatingStars           int     `json:"rating_stars"`
	Latitude              float64 `json:"latitude"`
	Longitude             float64 `json:"longitude"`
}

// SensorReading is the battery state of one sensor over a tour. Sensor stays nil
// until the reading's SensorID is resolved, and stays nil when resolution fails.
type SensorReading struct {
	SensorID            int64   `json:"sensor_id"`
	Sensor              *Sensor `json:"sensor,omitempty"`
	TourStartTime       int64   `json:"tour_start_time"`
	TourEndTime         int64   `json:"tour_end_time"`
	BatteryLevelStart   int16   `json:"battery_level_start"`
	BatteryLevelEnd     int16   `json:"battery_level_end"`
	BatteryStatusStart  int16   `json:"battery_status_start"`
	BatteryStatusEnd    int16   `json:"battery_status_end"`
	BatteryVoltageStart float32 `json:"battery_voltage_start"`
	BatteryVoltageEnd   float32 `json:"battery_voltage_end"`
}

// TourReference marks a compared segment of the tour by serie index range.
type TourReference struct {
	Label      string `json:"label,omitempty"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
}

// SerieData holds the per-time-slice data series of a tour.
type SerieData struct {
	Time                      []int     `json:"time,omitempty"`
	Altitude                  []float32 `json:"altitude,omitempty"`
	Cadence                   []float32 `json:"cadence,omitempty"`
	Distance                  []float32 `json:"distance,omitempty"`
	Pulse                     []float32 `json:"pulse,omitempty"`
	Temperature               []float32 `json:"temperature,omitempty"`
	Power                     []float32 `json:"power,omitempty"`
	Speed                     []float32 `json:"speed,omitempty"`
	Gears                     []int64   `json:"gears,omitempty"`
	LatitudeE6                []int     `json:"latitude_e6,omitempty"`
	LongitudeE6               []int     `json:"longitude_e6,omitempty"`
	PausedTimeStart           []int64   `json:"paused_time_start,omitempty"`
	PausedTimeEnd             []int64   `json:"paused_time_end,omitempty"`
	PausedTimeData            []int64   `json:"paused_time_data,omitempty"`
	PulseTimes                []int     `json:"pulse_times,omitempty"`
	PulseTimeIndex            []int     `json:"pulse_time_index,omitempty"`
	RunDynStanceTime          []int16   `json:"run_dyn_stance_time,omitempty"`
	RunDynStanceTimeBalance   []int16   `json:"run_dyn_stance_time_balance,omitempty"`
	RunDynStepLength          []int16   `json:"run_dyn_step_length,omitempty"`
	RunDynVerticalOscillation []int16   `json:"run_dyn_vertical_oscillation,omitempty"`
	RunDynVerticalRatio       []int16   `json:"run_dyn_vertical_ratio,omitempty"`
	SwimLengthType            []int16   `json:"swim_length_type,omitempty"`
	SwimCadence               []int16   `json:"swim_cadence,omitempty"`
	SwimStrokes               []int16   `json:"swim_strokes,omitempty"`
	SwimStrokeStyle           []int16   `json:"swim_stroke_style,omitempty"`
	SwimTime                  []int     `json:"swim_time,omitempty"`
	VisiblePointsSurfing      []bool    `json:"visible_points_surfing,omitempty"`
	BatteryPercentage         []int16   `json:"battery_percentage,omitempty"`
	BatteryTime               []int     `json:"battery_time,omitempty"`
}
