package domain

import "time"

// TourID is the content-derived identity of a tour.
type TourID int64

// Tour is the aggregate reconstructed from one tour of an export file.
type Tour struct {
	ID        TourID `json:"id"`
	UniqueKey string `json:"unique_key"`

	TimeZoneID   string    `json:"time_zone_id,omitempty"`
	StartTime    time.Time `json:"start_time"`
	StartYear    int       `json:"start_year"`
	StartMonth   int       `json:"start_month"`
	StartDay     int       `json:"start_day"`
	StartHour    int       `json:"start_hour"`
	StartMinute  int       `json:"start_minute"`
	StartSecond  int       `json:"start_second"`
	EndTime      time.Time `json:"end_time"`
	MovingTime   int       `json:"moving_time"`
	ElapsedTime  int64     `json:"elapsed_time"`
	PausedTime   int64     `json:"paused_time"`
	RecordedTime int64     `json:"recorded_time"`
	BreakTime    int64     `json:"break_time"`

	AltUp       float32 `json:"alt_up"`
	AltDown     float32 `json:"alt_down"`
	AltitudeNet float32 `json:"altitude_net"`

	AvgAltitudeChange      int       `json:"avg_altitude_change"`
	AvgCadence             float32   `json:"avg_cadence"`
	AvgPulse               float32   `json:"avg_pulse"`
	MaxPulse               float32   `json:"max_pulse"`
	RestPulse              int       `json:"rest_pulse"`
	StartPulse             int16     `json:"start_pulse"`
	HRZones                [10]int   `json:"hr_zones"`
	NumberOfHRZones        int       `json:"number_of_hr_zones"`
	ConconiDeflection      int       `json:"conconi_deflection"`
	BodyFat                float32   `json:"body_fat"`
	BodyWeight             float32   `json:"body_weight"`
	Calories               int       `json:"calories"`
	CadenceMultiplier      float32   `json:"cadence_multiplier"`
	CadenceZoneFastTime    int       `json:"cadence_zone_fast_time"`
	CadenceZoneSlowTime    int       `json:"cadence_zone_slow_time"`
	CadenceZonesDelimiter  int       `json:"cadence_zones_delimiter"`
	BatteryPercentageStart int16     `json:"battery_percentage_start"`
	BatteryPercentageEnd   int16     `json:"battery_percentage_end"`
	DateTimeCreated        time.Time `json:"date_time_created"`
	DateTimeModified       time.Time `json:"date_time_modified"`

	DeviceID              string `json:"device_id,omitempty"`
	DeviceName            string `json:"device_name,omitempty"`
	DeviceFirmwareVersion string `json:"device_firmware_version,omitempty"`
	DeviceModeName        string `json:"device_mode_name,omitempty"`
	DeviceTimeInterval    int16  `json:"device_time_interval"`
	DPTolerance           int16  `json:"dp_tolerance"`
	FrontShiftCount       int16  `json:"front_shift_count"`
	RearShiftCount        int    `json:"rear_shift_count"`
	HasGeoData            bool   `json:"has_geo_data"`
	IsDistanceFromSensor  int16  `json:"is_distance_from_sensor"`
	IsPowerSensorPresent  int16  `json:"is_power_sensor_present"`
	IsPulseSensorPresent  int16  `json:"is_pulse_sensor_present"`
	IsStrideSensorPresent int16  `json:"is_stride_sensor_present"`

	MaxAltitude          float32 `json:"max_altitude"`
	MaxPace              float32 `json:"max_pace"`
	MaxSpeed             float32 `json:"max_speed"`
	MergedAltitudeOffset int     `json:"merged_altitude_offset"`
	MergedTourTimeOffset int     `json:"merged_tour_time_offset"`
	NumberOfPhotos       int     `json:"number_of_photos"`
	NumberOfTimeSlices   int     `json:"number_of_time_slices"`
	PhotoTimeAdjustment  int     `json:"photo_time_adjustment"`
	StartAltitude        int16   `json:"start_altitude"`
	StartDistance        float32 `json:"start_distance"`
	TemperatureScale     int     `json:"temperature_scale"`
	TourDistance         float32 `json:"tour_distance"`

	Power    Power           `json:"power"`
	RunDyn   RunningDynamics `json:"running_dynamics"`
	Surfing  Surfing         `json:"surfing"`
	Training Training        `json:"training"`
	Weather  Weather         `json:"weather"`

	ImportFileName string `json:"import_file_name,omitempty"`
	ImportFilePath string `json:"import_file_path,omitempty"`
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	StartPlace     string `json:"start_place,omitempty"`
	EndPlace       string `json:"end_place,omitempty"`

	Markers        []Marker        `json:"markers,omitempty"`
	Waypoints      []Waypoint      `json:"waypoints,omitempty"`
	Photos         []Photo         `json:"photos,omitempty"`
	SensorReadings []SensorReading `json:"sensor_readings,omitempty"`
	TourReferences []TourReference `json:"tour_references,omitempty"`
	Series         *SerieData      `json:"series,omitempty"`

	PendingTagNames []string `json:"pending_tag_names,omitempty"`
	PendingTypeName *string  `json:"pending_type_name,omitempty"`

	TourType *TourType `json:"tour_type,omitempty"`
	Tags     []Tag     `json:"tags,omitempty"`

	loc *time.Location
}

type Power struct {
	Avg                         float32 `json:"avg"`
	Max                         int     `json:"max"`
	Normalized                  int     `json:"normalized"`
	FTP                         int     `json:"ftp"`
	IntensityFactor             float32 `json:"intensity_factor"`
	TotalWork                   int64   `json:"total_work"`
	TrainingStressScore         float32 `json:"training_stress_score"`
	PedalLeftRightBalance       int     `json:"pedal_left_right_balance"`
	AvgLeftPedalSmoothness      float32 `json:"avg_left_pedal_smoothness"`
	AvgRightPedalSmoothness     float32 `json:"avg_right_pedal_smoothness"`
	AvgLeftTorqueEffectiveness  float32 `json:"avg_left_torque_effectiveness"`
	AvgRightTorqueEffectiveness float32 `json:"avg_right_torque_effectiveness"`
}

// RunningDynamics holds avg/min/max variants per running-dynamics metric.
type RunningDynamics struct {
	StanceTimeAvg          float32 `json:"stance_time_avg"`
	StanceTimeMin          int16   `json:"stance_time_min"`
	StanceTimeMax          int16   `json:"stance_time_max"`
	StanceTimeBalanceAvg   float32 `json:"stance_time_balance_avg"`
	StanceTimeBalanceMin   int16   `json:"stance_time_balance_min"`
	StanceTimeBalanceMax   int16   `json:"stance_time_balance_max"`
	StepLengthAvg          float32 `json:"step_length_avg"`
	StepLengthMin          int16   `json:"step_length_min"`
	StepLengthMax          int16   `json:"step_length_max"`
	VerticalOscillationAvg float32 `json:"vertical_oscillation_avg"`
	VerticalOscillationMin int16   `json:"vertical_oscillation_min"`
	VerticalOscillationMax int16   `json:"vertical_oscillation_max"`
	VerticalRatioAvg       float32 `json:"vertical_ratio_avg"`
	VerticalRatioMin       int16   `json:"vertical_ratio_min"`
	VerticalRatioMax       int16   `json:"vertical_ratio_max"`
}

// Surfing holds the surf-detection parameters.
type Surfing struct {
	IsMinDistance     bool  `json:"is_min_distance"`
	MinDistance       int16 `json:"min_distance"`
	MinSpeedStartStop int16 `json:"min_speed_start_stop"`
	MinSpeedSurfing   int16 `json:"min_speed_surfing"`
	MinTimeDuration   int16 `json:"min_time_duration"`
	NumberOfEvents    int16 `json:"number_of_events"`
}

type Training struct {
	EffectAerob   float32 `json:"effect_aerob"`
	EffectAnaerob float32 `json:"effect_anaerob"`
	Performance   float32 `json:"performance"`
}

type Weather struct {
	Description              string  `json:"description,omitempty"`
	Clouds                   string  `json:"clouds,omitempty"`
	IsFromProvider           bool    `json:"is_from_provider"`
	Humidity                 int16   `json:"humidity"`
	Precipitation            float32 `json:"precipitation"`
	Pressure                 float32 `json:"pressure"`
	Snowfall                 float32 `json:"snowfall"`
	TemperatureAverage       float32 `json:"temperature_average"`
	TemperatureAverageDevice float32 `json:"temperature_average_device"`
	TemperatureMax           float32 `json:"temperature_max"`
	TemperatureMaxDevice     float32 `json:"temperature_max_device"`
	TemperatureMin           float32 `json:"temperature_min"`
	TemperatureMinDevice     float32 `json:"temperature_min_device"`
	TemperatureWindChill     float32 `json:"temperature_wind_chill"`
	WindDirection            int     `json:"wind_direction"`
	WindSpeed                int     `json:"wind_speed"`
}

// AttachMarkers unions items into the marker set.
func (t *Tour) AttachMarkers(items []Marker) { t.Markers = union(t.Markers, items) }

// AttachWaypoints unions items into the waypoint set.
func (t *Tour) AttachWaypoints(items []Waypoint) { t.Waypoints = union(t.Waypoints, items) }

// AttachPhotos unions items into the photo set.
func (t *Tour) AttachPhotos(items []Photo) { t.Photos = union(t.Photos, items) }

// AttachSensorReadings unions items into the sensor reading set.
func (t *Tour) AttachSensorReadings(items []SensorReading) {
	t.SensorReadings = union(t.SensorReadings, items)
}

// AttachTourReferences unions items into the tour reference set.
func (t *Tour) AttachTourReferences(items []TourReference) {
	t.TourReferences = union(t.TourReferences, items)
}

// AddPendingTagNames unions names into the pending tag name set.
func (t *Tour) AddPendingTagNames(names []string) {
	t.PendingTagNames = union(t.PendingTagNames, names)
}

// SetPendingTypeName records the activity type name to resolve at finalization.
func (t *Tour) SetPendingTypeName(name string) {
	t.PendingTypeName = &name
}

// union appends the members of items missing from dst, keeping first-seen order.
// An empty items leaves dst untouched, so a nil set stays nil.
func union[T comparable](dst, items []T) []T {
	if len(items) == 0 {
		return dst
	}
	seen := make(map[T]struct{}, len(dst)+len(items))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range items {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}
