package importer

import (
	"fmt"
	"time"

	"tourline/internal/domain"
)

// tourIntake is the target of the tour attribute table. Most fields land on the
// tour directly; the ordered subset is buffered until applyOrdered runs.
type tourIntake struct {
	tour    *domain.Tour
	ordered orderedValues
}

func tp[V any](get func(t *domain.Tour) *V) func(*tourIntake) *V {
	return func(in *tourIntake) *V { return get(in.tour) }
}

const hrZoneCount = 10

var tourAttrs = newTable(tourFields()...)

func tourFields() []Field[tourIntake] {
	fs := []Field[tourIntake]{
		// buffered, see OrderedFields
		stringField("timeZoneId", func(in *tourIntake) *string { return &in.ordered.timeZoneID }),
		intField("tourComputedTime_Moving", 0, func(in *tourIntake) *int { return &in.ordered.moving }),
		longField("tourDeviceTime_Paused", 0, func(in *tourIntake) *int64 { return &in.ordered.paused }),
		longField("tourDeviceTime_Recorded", 0, func(in *tourIntake) *int64 { return &in.ordered.recorded }),
		timeField("tourStartTime", func(in *tourIntake) *time.Time { return &in.ordered.start }),
		longField("tourDeviceTime_Elapsed", 0, func(in *tourIntake) *int64 { return &in.ordered.elapsed }),
		floatField("tourAltDown", 0, func(in *tourIntake) *float32 { return &in.ordered.altDown }),

		intField("avgAltitudeChange", 0, tp(func(t *domain.Tour) *int { return &t.AvgAltitudeChange })),
		floatField("avgCadence", 0, tp(func(t *domain.Tour) *float32 { return &t.AvgCadence })),
		floatField("avgPulse", 0, tp(func(t *domain.Tour) *float32 { return &t.AvgPulse })),
		shortField("battery_Percentage_Start", 0, tp(func(t *domain.Tour) *int16 { return &t.BatteryPercentageStart })),
		shortField("battery_Percentage_End", 0, tp(func(t *domain.Tour) *int16 { return &t.BatteryPercentageEnd })),
		floatField("bodyFat", 0, tp(func(t *domain.Tour) *float32 { return &t.BodyFat })),
		floatField("bodyWeight", 0, tp(func(t *domain.Tour) *float32 { return &t.BodyWeight })),
		floatField("cadenceMultiplier", 0, tp(func(t *domain.Tour) *float32 { return &t.CadenceMultiplier })),
		intField("cadenceZone_FastTime", 0, tp(func(t *domain.Tour) *int { return &t.CadenceZoneFastTime })),
		intField("cadenceZone_SlowTime", 0, tp(func(t *domain.Tour) *int { return &t.CadenceZoneSlowTime })),
		intField("cadenceZones_DelimiterValue", 0, tp(func(t *domain.Tour) *int { return &t.CadenceZonesDelimiter })),
		intField("calories", 0, tp(func(t *domain.Tour) *int { return &t.Calories })),
		intField("conconiDeflection", 0, tp(func(t *domain.Tour) *int { return &t.ConconiDeflection })),
		timeField("dateTimeCreated", tp(func(t *domain.Tour) *time.Time { return &t.DateTimeCreated })),
		timeField("dateTimeModified", tp(func(t *domain.Tour) *time.Time { return &t.DateTimeModified })),

		stringField("devicePluginId", tp(func(t *domain.Tour) *string { return &t.DeviceID })),
		stringField("devicePluginName", tp(func(t *domain.Tour) *string { return &t.DeviceName })),
		stringField("deviceFirmwareVersion", tp(func(t *domain.Tour) *string { return &t.DeviceFirmwareVersion })),
		stringField("deviceModeName", tp(func(t *domain.Tour) *string { return &t.DeviceModeName })),
		shortField("deviceTimeInterval", 0, tp(func(t *domain.Tour) *int16 { return &t.DeviceTimeInterval })),
		shortField("dpTolerance", 0, tp(func(t *domain.Tour) *int16 { return &t.DPTolerance })),
		shortField("frontShiftCount", 0, tp(func(t *domain.Tour) *int16 { return &t.FrontShiftCount })),
		intField("rearShiftCount", 0, tp(func(t *domain.Tour) *int { return &t.RearShiftCount })),
		boolField("hasGeoData", tp(func(t *domain.Tour) *bool { return &t.HasGeoData })),
		shortField("isDistanceFromSensor", 0, tp(func(t *domain.Tour) *int16 { return &t.IsDistanceFromSensor })),
		shortField("isPowerSensorPresent", 0, tp(func(t *domain.Tour) *int16 { return &t.IsPowerSensorPresent })),
		shortField("isPulseSensorPresent", 0, tp(func(t *domain.Tour) *int16 { return &t.IsPulseSensorPresent })),
		shortField("isStrideSensorPresent", 0, tp(func(t *domain.Tour) *int16 { return &t.IsStrideSensorPresent })),

		floatField("maxAltitude", 0, tp(func(t *domain.Tour) *float32 { return &t.MaxAltitude })),
		floatField("maxPace", 0, tp(func(t *domain.Tour) *float32 { return &t.MaxPace })),
		floatField("maxPulse", 0, tp(func(t *domain.Tour) *float32 { return &t.MaxPulse })),
		floatField("maxSpeed", 0, tp(func(t *domain.Tour) *float32 { return &t.MaxSpeed })),
		intField("mergedAltitudeOffset", 0, tp(func(t *domain.Tour) *int { return &t.MergedAltitudeOffset })),
		intField("mergedTourTimeOffset", 0, tp(func(t *domain.Tour) *int { return &t.MergedTourTimeOffset })),
		intField("numberOfHrZones", 0, tp(func(t *domain.Tour) *int { return &t.NumberOfHRZones })),
		intField("numberOfPhotos", 0, tp(func(t *domain.Tour) *int { return &t.NumberOfPhotos })),
		intField("numberOfTimeSlices", 0, tp(func(t *domain.Tour) *int { return &t.NumberOfTimeSlices })),
		intField("photoTimeAdjustment", 0, tp(func(t *domain.Tour) *int { return &t.PhotoTimeAdjustment })),
		intField("restPulse", -1, tp(func(t *domain.Tour) *int { return &t.RestPulse })),
		shortField("startAltitude", 0, tp(func(t *domain.Tour) *int16 { return &t.StartAltitude })),
		floatField("startDistance", 0, tp(func(t *domain.Tour) *float32 { return &t.StartDistance })),
		shortField("startPulse", 0, tp(func(t *domain.Tour) *int16 { return &t.StartPulse })),
		intField("temperatureScale", 0, tp(func(t *domain.Tour) *int { return &t.TemperatureScale })),
		floatField("tourAltUp", 0, tp(func(t *domain.Tour) *float32 { return &t.AltUp })),
		floatField("tourDistance", 0, tp(func(t *domain.Tour) *float32 { return &t.TourDistance })),

		floatField("power_Avg", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.Avg })),
		intField("power_Max", 0, tp(func(t *domain.Tour) *int { return &t.Power.Max })),
		intField("power_Normalized", 0, tp(func(t *domain.Tour) *int { return &t.Power.Normalized })),
		intField("power_FTP", 0, tp(func(t *domain.Tour) *int { return &t.Power.FTP })),
		floatField("power_IntensityFactor", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.IntensityFactor })),
		longField("power_TotalWork", 0, tp(func(t *domain.Tour) *int64 { return &t.Power.TotalWork })),
		floatField("power_TrainingStressScore", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.TrainingStressScore })),
		intField("power_PedalLeftRightBalance", 0, tp(func(t *domain.Tour) *int { return &t.Power.PedalLeftRightBalance })),
		floatField("power_AvgLeftPedalSmoothness", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.AvgLeftPedalSmoothness })),
		floatField("power_AvgRightPedalSmoothness", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.AvgRightPedalSmoothness })),
		floatField("power_AvgLeftTorqueEffectiveness", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.AvgLeftTorqueEffectiveness })),
		floatField("power_AvgRightTorqueEffectiveness", 0, tp(func(t *domain.Tour) *float32 { return &t.Power.AvgRightTorqueEffectiveness })),

		floatField("runDyn_StanceTime_Avg", 0, tp(func(t *domain.Tour) *float32 { return &t.RunDyn.StanceTimeAvg })),
		shortField("runDyn_StanceTime_Min", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.StanceTimeMin })),
		shortField("runDyn_StanceTime_Max", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.StanceTimeMax })),
		floatField("runDyn_StanceTimeBalance_Avg", 0, tp(func(t *domain.Tour) *float32 { return &t.RunDyn.StanceTimeBalanceAvg })),
		shortField("runDyn_StanceTimeBalance_Min", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.StanceTimeBalanceMin })),
		shortField("runDyn_StanceTimeBalance_Max", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.StanceTimeBalanceMax })),
		floatField("runDyn_StepLength_Avg", 0, tp(func(t *domain.Tour) *float32 { return &t.RunDyn.StepLengthAvg })),
		shortField("runDyn_StepLength_Min", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.StepLengthMin })),
		shortField("runDyn_StepLength_Max", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.StepLengthMax })),
		floatField("runDyn_VerticalOscillation_Avg", 0, tp(func(t *domain.Tour) *float32 { return &t.RunDyn.VerticalOscillationAvg })),
		shortField("runDyn_VerticalOscillation_Min", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.VerticalOscillationMin })),
		shortField("runDyn_VerticalOscillation_Max", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.VerticalOscillationMax })),
		floatField("runDyn_VerticalRatio_Avg", 0, tp(func(t *domain.Tour) *float32 { return &t.RunDyn.VerticalRatioAvg })),
		shortField("runDyn_VerticalRatio_Min", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.VerticalRatioMin })),
		shortField("runDyn_VerticalRatio_Max", 0, tp(func(t *domain.Tour) *int16 { return &t.RunDyn.VerticalRatioMax })),

		boolField("surfing_IsMinDistance", tp(func(t *domain.Tour) *bool { return &t.Surfing.IsMinDistance })),
		shortField("surfing_MinDistance", 0, tp(func(t *domain.Tour) *int16 { return &t.Surfing.MinDistance })),
		shortField("surfing_MinSpeed_StartStop", 0, tp(func(t *domain.Tour) *int16 { return &t.Surfing.MinSpeedStartStop })),
		shortField("surfing_MinSpeed_Surfing", 0, tp(func(t *domain.Tour) *int16 { return &t.Surfing.MinSpeedSurfing })),
		shortField("surfing_MinTimeDuration", 0, tp(func(t *domain.Tour) *int16 { return &t.Surfing.MinTimeDuration })),
		shortField("surfing_NumberOfEvents", 0, tp(func(t *domain.Tour) *int16 { return &t.Surfing.NumberOfEvents })),

		floatField("training_TrainingEffect_Aerob", 0, tp(func(t *domain.Tour) *float32 { return &t.Training.EffectAerob })),
		floatField("training_TrainingEffect_Anaerob", 0, tp(func(t *domain.Tour) *float32 { return &t.Training.EffectAnaerob })),
		floatField("training_TrainingPerformance", 0, tp(func(t *domain.Tour) *float32 { return &t.Training.Performance })),

		boolField("isWeatherDataFromProvider", tp(func(t *domain.Tour) *bool { return &t.Weather.IsFromProvider })),
		shortField("weather_Humidity", 0, tp(func(t *domain.Tour) *int16 { return &t.Weather.Humidity })),
		floatField("weather_Precipitation", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.Precipitation })),
		floatField("weather_Pressure", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.Pressure })),
		floatField("weather_Snowfall", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.Snowfall })),
		floatField("weather_Temperature_Average", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureAverage })),
		floatField("weather_Temperature_Average_Device", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureAverageDevice })),
		floatField("weather_Temperature_Max", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureMax })),
		floatField("weather_Temperature_Max_Device", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureMaxDevice })),
		floatField("weather_Temperature_Min", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureMin })),
		floatField("weather_Temperature_Min_Device", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureMinDevice })),
		floatField("weather_Temperature_WindChill", 0, tp(func(t *domain.Tour) *float32 { return &t.Weather.TemperatureWindChill })),
		intField("weather_Wind_Direction", 0, tp(func(t *domain.Tour) *int { return &t.Weather.WindDirection })),
		intField("weather_Wind_Speed", 0, tp(func(t *domain.Tour) *int { return &t.Weather.WindSpeed })),
	}
	for i := range hrZoneCount {
		fs = append(fs, intField(fmt.Sprintf("hrZone%d", i), 0, tp(func(t *domain.Tour) *int { return &t.HRZones[i] })))
	}
	return fs
}

var tourLeaves = newTable(
	stringField("importFileName", func(t *domain.Tour) *string { return &t.ImportFileName }),
	stringField("importFilePath", func(t *domain.Tour) *string { return &t.ImportFilePath }),
	stringField("tourTitle", func(t *domain.Tour) *string { return &t.Title }),
	stringField("tourDescription", func(t *domain.Tour) *string { return &t.Description }),
	stringField("tourStartPlace", func(t *domain.Tour) *string { return &t.StartPlace }),
	stringField("tourEndPlace", func(t *domain.Tour) *string { return &t.EndPlace }),
	stringField("weather", func(t *domain.Tour) *string { return &t.Weather.Description }),
	stringField("weather_Clouds", func(t *domain.Tour) *string { return &t.Weather.Clouds }),
)

var markerAttrs = newTable(
	floatField("altitude", domain.UnsetFloat, func(m *domain.Marker) *float32 { return &m.Altitude }),
	floatField("distance20", -1, func(m *domain.Marker) *float32 { return &m.Distance }),
	doubleField("latitude", domain.UnsetDouble, func(m *domain.Marker) *float64 { return &m.Latitude }),
	doubleField("longitude", domain.UnsetDouble, func(m *domain.Marker) *float64 { return &m.Longitude }),
	intField("labelXOffset", 0, func(m *domain.Marker) *int { return &m.LabelXOffset }),
	intField("labelYOffset", 0, func(m *domain.Marker) *int { return &m.LabelYOffset }),
	intField("serieIndex", 0, func(m *domain.Marker) *int { return &m.SerieIndex }),
	intField("time", -1, func(m *domain.Marker) *int { return &m.Time }),
	longField("tourTime", 0, func(m *domain.Marker) *int64 { return &m.TourTime }),
	intField("type", 0, func(m *domain.Marker) *int { return &m.Type }),
	intField("visualPosition", 0, func(m *domain.Marker) *int { return &m.LabelPosition }),
	intField("isMarkerVisible", 1, func(m *domain.Marker) *int { return &m.Visible }),
)

var markerLeaves = newTable(
	stringField("label", func(m *domain.Marker) *string { return &m.Label }),
	stringField("description", func(m *domain.Marker) *string { return &m.Description }),
	stringField("urlAddress", func(m *domain.Marker) *string { return &m.URLAddress }),
	stringField("urlText", func(m *domain.Marker) *string { return &m.URLText }),
)

var waypointAttrs = newTable(
	floatField("altitude", 0, func(w *domain.Waypoint) *float32 { return &w.Altitude }),
	doubleField("latitude", 0, func(w *domain.Waypoint) *float64 { return &w.Latitude }),
	doubleField("longitude", 0, func(w *domain.Waypoint) *float64 { return &w.Longitude }),
	longField("time", 0, func(w *domain.Waypoint) *int64 { return &w.Time }),
)

var waypointLeaves = newTable(
	stringField("name", func(w *domain.Waypoint) *string { return &w.Name }),
	stringField("category", func(w *domain.Waypoint) *string { return &w.Category }),
	stringField("comment", func(w *domain.Waypoint) *string { return &w.Comment }),
	stringField("description", func(w *domain.Waypoint) *string { return &w.Description }),
	stringField("symbol", func(w *domain.Waypoint) *string { return &w.Symbol }),
	stringField("urlAddress", func(w *domain.Waypoint) *string { return &w.URLAddress }),
	stringField("urlText", func(w *domain.Waypoint) *string { return &w.URLText }),
)

var photoAttrs = newTable(
	longField("imageExifTime", 0, func(p *domain.Photo) *int64 { return &p.ImageExifTime }),
	longField("imageFileLastModified", 0, func(p *domain.Photo) *int64 { return &p.ImageFileLastModified }),
	longField("adjustedTime", 0, func(p *domain.Photo) *int64 { return &p.AdjustedTime }),
	intField("isGeoFromPhoto", 0, func(p *domain.Photo) *int { return &p.IsGeoFromPhoto }),
	intField("ratingStars", 0, func(p *domain.Photo) *int { return &p.RatingStars }),
	doubleField("latitude", 0, func(p *domain.Photo) *float64 { return &p.Latitude }),
	doubleField("longitude", 0, func(p *domain.Photo) *float64 { return &p.Longitude }),
)

var photoLeaves = newTable(
	stringField("imageFilePathName", func(p *domain.Photo) *string { return &p.FilePathName }),
)

var sensorValueAttrs = newTable(
	longField("sensorId", 0, func(s *domain.SensorReading) *int64 { return &s.SensorID }),
	longField("tourStartTime", 0, func(s *domain.SensorReading) *int64 { return &s.TourStartTime }),
	longField("tourEndTime", 0, func(s *domain.SensorReading) *int64 { return &s.TourEndTime }),
	shortField("batteryLevel_Start", -1, func(s *domain.SensorReading) *int16 { return &s.BatteryLevelStart }),
	shortField("batteryLevel_End", -1, func(s *domain.SensorReading) *int16 { return &s.BatteryLevelEnd }),
	shortField("batteryStatus_Start", -1, func(s *domain.SensorReading) *int16 { return &s.BatteryStatusStart }),
	shortField("batteryStatus_End", -1, func(s *domain.SensorReading) *int16 { return &s.BatteryStatusEnd }),
	floatField("batteryVoltage_Start", -1, func(s *domain.SensorReading) *float32 { return &s.BatteryVoltageStart }),
	floatField("batteryVoltage_End", -1, func(s *domain.SensorReading) *float32 { return &s.BatteryVoltageEnd }),
)

var sensorValueLeaves = newTable[domain.SensorReading]()

var tourReferenceAttrs = newTable(
	intField("startIndex", 0, func(r *domain.TourReference) *int { return &r.StartIndex }),
	intField("endIndex", 0, func(r *domain.TourReference) *int { return &r.EndIndex }),
)

var tourReferenceLeaves = newTable(
	stringField("label", func(r *domain.TourReference) *string { return &r.Label }),
)
