package importer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tourline/internal/domain"
)

var tourAttrList = []string{
	`tourStartTime="2021-05-01T08:30+02:00[Europe/Berlin]"`,
	`timeZoneId="Europe/Berlin"`,
	`tourDeviceTime_Elapsed="3600"`,
	`tourDeviceTime_Paused="600"`,
	`tourComputedTime_Moving="2900"`,
	`tourAltUp="500"`,
	`tourAltDown="200"`,
	`tourDistance="12345.6"`,
	`calories="812"`,
	`avgPulse="141.5"`,
	`hrZone3="150"`,
	`power_TotalWork="123456"`,
	`hasGeoData="true"`,
	`devicePluginName="Garmin"`,
}

func tourElement(attrs []string, body string) string {
	return `<tour ` + strings.Join(attrs, " ") + `>` + body + `</tour>`
}

func exportDoc(tours ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` + "\n<mt version=\"3\">" + strings.Join(tours, "\n") + "</mt>"
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

func runImport(t *testing.T, im *Importer, doc string, sink *Sink) FileResult {
	t.Helper()
	return im.Import(context.Background(), "/data/exports/ride.mt", strings.NewReader(doc), sink)
}

func onlyTour(t *testing.T, sink *Sink) *domain.Tour {
	t.Helper()
	tours := sink.Tours()
	require.Len(t, tours, 1)
	return tours[0]
}

func TestImportBuildsTour(t *testing.T) {
	mem := NewMemoryRegistry()
	im := New(mem.Registries())
	sink := NewSink()

	body := `<tourTitle>Morning ride</tourTitle><tourDescription>Hills</tourDescription>` +
		`<weather>sunny</weather>`
	res := runImport(t, im, exportDoc(tourElement(tourAttrList, body)), sink)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusParsed, res.Status)
	assert.Equal(t, 1, res.Count(OutcomeImported))

	tour := onlyTour(t, sink)
	assert.Equal(t, "Morning ride", tour.Title)
	assert.Equal(t, "Hills", tour.Description)
	assert.Equal(t, "sunny", tour.Weather.Description)
	assert.Equal(t, 812, tour.Calories)
	assert.Equal(t, float32(141.5), tour.AvgPulse)
	assert.Equal(t, 150, tour.HRZones[3])
	assert.Equal(t, int64(123456), tour.Power.TotalWork)
	assert.True(t, tour.HasGeoData)
	assert.Equal(t, "Garmin", tour.DeviceName)
	assert.Equal(t, -1, tour.RestPulse)
	assert.Equal(t, "1234574953", tour.UniqueKey)
	assert.Equal(t, Identify(tour), tour.ID)
	assert.Equal(t, "ride.mt", tour.ImportFileName)
	assert.Equal(t, "/data/exports", tour.ImportFilePath)
	assert.True(t, sink.FileProducedValidData)
	assert.False(t, sink.NewTagWasCreated)
	assert.False(t, sink.NewTypeWasCreated)
}

func TestDerivedTiming(t *testing.T) {
	im := New(NewMemoryRegistry().Registries())
	sink := NewSink()
	res := runImport(t, im, exportDoc(tourElement(tourAttrList, "")), sink)
	require.NoError(t, res.Err)
	tour := onlyTour(t, sink)

	assert.Equal(t, "Europe/Berlin", tour.Location().String())
	assert.Equal(t, 2021, tour.StartYear)
	assert.Equal(t, 5, tour.StartMonth)
	assert.Equal(t, 1, tour.StartDay)
	assert.Equal(t, 8, tour.StartHour)
	assert.Equal(t, 30, tour.StartMinute)
	assert.True(t, tour.EndTime.Equal(tour.StartTime.Add(time.Hour)))
	assert.Equal(t, int64(3000), tour.RecordedTime)
	assert.Equal(t, int64(700), tour.BreakTime)
	assert.Equal(t, float32(300), tour.AltitudeNet)
}

func TestOrderedFieldsApplyInFixedOrder(t *testing.T) {
	assert.Equal(t, []string{
		"timeZoneId",
		"tourComputedTime_Moving",
		"tourDeviceTime_Paused",
		"tourDeviceTime_Recorded",
		"tourStartTime",
		"tourDeviceTime_Elapsed",
		"tourAltDown",
	}, OrderedFields)
	require.Len(t, orderedSetters, len(OrderedFields))
	for _, name := range OrderedFields {
		_, ok := tourAttrs.Lookup(name)
		assert.True(t, ok, name)
		assert.Contains(t, orderedSetters, name)
	}

	for _, attrs := range [][]string{tourAttrList, reversed(tourAttrList)} {
		var steps []string
		im := New(NewMemoryRegistry().Registries())
		im.trace = func(name string) { steps = append(steps, name) }
		res := runImport(t, im, exportDoc(tourElement(attrs, "")), NewSink())
		require.NoError(t, res.Err)
		assert.Equal(t, OrderedFields, steps)
	}
}

func TestAttributeOrderDoesNotMatter(t *testing.T) {
	body := `<markers><marker time="5" latitude="47.1"><label>A</label></marker></markers>`
	build := func(attrs []string) *domain.Tour {
		sink := NewSink()
		res := runImport(t, New(NewMemoryRegistry().Registries()), exportDoc(tourElement(attrs, body)), sink)
		require.NoError(t, res.Err)
		return onlyTour(t, sink)
	}
	forward := build(tourAttrList)
	backward := build(reversed(tourAttrList))
	assert.Equal(t, forward, backward)
}

func TestDedupIsIdempotent(t *testing.T) {
	mem := NewMemoryRegistry()
	im := New(mem.Registries())
	doc := exportDoc(tourElement(tourAttrList, ""))
	doc = strings.Replace(doc, "</mt>", `<tourtype><name>Cycling</name></tourtype><tags><name> alps </name><name></name></tags></mt>`, 1)

	first := NewSink()
	res := runImport(t, im, doc, first)
	require.NoError(t, res.Err)
	require.Len(t, first.NewlyImported, 1)
	assert.True(t, first.NewTagWasCreated)
	assert.True(t, first.NewTypeWasCreated)
	tour := onlyTour(t, first)
	require.NotNil(t, tour.TourType)
	assert.Equal(t, "Cycling", tour.TourType.Name)
	require.Len(t, tour.Tags, 1)
	assert.Equal(t, "alps", tour.Tags[0].Name)

	for id := range first.NewlyImported {
		mem.MarkImported(id)
	}
	second := NewSink()
	res = runImport(t, im, doc, second)
	require.NoError(t, res.Err)
	assert.Empty(t, second.NewlyImported)
	assert.False(t, second.NewTagWasCreated)
	assert.False(t, second.NewTypeWasCreated)
	assert.False(t, second.FileProducedValidData)
	assert.Equal(t, 1, res.Count(OutcomeDuplicate))
	assert.Equal(t, 1, mem.TagCount())
	assert.Equal(t, 1, mem.TourTypeCount())
}

type spyRegistry struct {
	*MemoryRegistry
	calls int
}

func (s *spyRegistry) TagByName(ctx context.Context, name string) (domain.Tag, bool, error) {
	s.calls++
	return s.MemoryRegistry.TagByName(ctx, name)
}

func (s *spyRegistry) TourTypeByName(ctx context.Context, name string) (domain.TourType, bool, error) {
	s.calls++
	return s.MemoryRegistry.TourTypeByName(ctx, name)
}

func (s *spyRegistry) SensorBySensorID(ctx context.Context, id int64) (domain.Sensor, bool, error) {
	s.calls++
	return s.MemoryRegistry.SensorBySensorID(ctx, id)
}

func TestDuplicateTouchesNoRegistry(t *testing.T) {
	spy := &spyRegistry{MemoryRegistry: NewMemoryRegistry()}
	im := New(Registries{Tags: spy, Types: spy, Sensors: spy, Imported: spy})
	body := `<tourtype><name>Run</name></tourtype><tags><name>a</name></tags>` +
		`<sensorvalues><sensorvalue sensorId="5"/></sensorvalues>`
	doc := exportDoc(tourElement(tourAttrList, body))

	probe := NewSink()
	require.NoError(t, runImport(t, New(NewMemoryRegistry().Registries()), doc, probe).Err)
	spy.MarkImported(onlyTour(t, probe).ID)

	sink := NewSink()
	res := runImport(t, im, doc, sink)
	require.NoError(t, res.Err)
	assert.Equal(t, 0, spy.calls)
	assert.Equal(t, 0, spy.TagCount())
	assert.Empty(t, sink.NewlyImported)
}

func TestDuplicateWithinFileKeepsFirst(t *testing.T) {
	im := New(NewMemoryRegistry().Registries())
	sink := NewSink()
	first := tourElement(tourAttrList, `<tourTitle>first</tourTitle>`)
	second := tourElement(tourAttrList, `<tourTitle>second</tourTitle>`)
	res := runImport(t, im, exportDoc(first, second), sink)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Count(OutcomeImported))
	assert.Equal(t, 1, res.Count(OutcomeDuplicate))
	assert.Equal(t, "first", onlyTour(t, sink).Title)
}

func TestDuplicateAcrossBatchKeepsFirst(t *testing.T) {
	im := New(NewMemoryRegistry().Registries())
	sink := NewSink()
	doc := exportDoc(tourElement(tourAttrList, ""))
	require.Equal(t, 1, runImport(t, im, doc, sink).Count(OutcomeImported))
	res := runImport(t, im, doc, sink)
	assert.Equal(t, 1, res.Count(OutcomeDuplicate))
	assert.Len(t, sink.NewlyImported, 1)
}

func TestMarkerSetCollapsesDuplicates(t *testing.T) {
	body := `<markers>` +
		`<marker time="10" distance20="100"><label>Start</label></marker>` +
		`<marker time="20" distance20="200"><label>Top</label></marker>` +
		`<marker distance20="100" time="10"><label>Start</label></marker>` +
		`</markers>`
	sink := NewSink()
	res := runImport(t, New(NewMemoryRegistry().Registries()), exportDoc(tourElement(tourAttrList, body)), sink)
	require.NoError(t, res.Err)
	tour := onlyTour(t, sink)
	require.Len(t, tour.Markers, 2)
	assert.Equal(t, "Start", tour.Markers[0].Label)
	assert.Equal(t, "Top", tour.Markers[1].Label)
	assert.Equal(t, 1, tour.Markers[0].Visible)
	assert.Equal(t, domain.UnsetDouble, tour.Markers[0].Latitude)
}

func TestEmptyCollectionsAttachNothing(t *testing.T) {
	body := `<markers></markers><waypoints/><photos></photos><sensorvalues/><tags/><tourtype><name> </name></tourtype>`
	sink := NewSink()
	res := runImport(t, New(NewMemoryRegistry().Registries()), exportDoc(tourElement(tourAttrList, body)), sink)
	require.NoError(t, res.Err)
	tour := onlyTour(t, sink)
	assert.Nil(t, tour.Markers)
	assert.Nil(t, tour.Waypoints)
	assert.Nil(t, tour.Photos)
	assert.Nil(t, tour.SensorReadings)
	assert.Nil(t, tour.PendingTagNames)
	assert.Nil(t, tour.PendingTypeName)
	assert.Nil(t, tour.TourType)
	assert.False(t, sink.NewTypeWasCreated)
}

func TestCollectionsParseItems(t *testing.T) {
	body := `<waypoints><waypoint latitude="47.5" time="99"><name>Hut</name><symbol>flag</symbol></waypoint></waypoints>` +
		`<photos><photo ratingStars="4" imageExifTime="1620000000000"><imageFilePathName>/p/a.jpg</imageFilePathName></photo></photos>` +
		`<tourreferences><tourreference startIndex="3" endIndex="9"><label>climb</label></tourreference></tourreferences>` +
		`<dataseries><serieTime values="[0, 1, 2]"/><seriePulse values="[80.5, x, 90]"/>` +
		`<serieVisiblePoints_Surfing values="[true, false]"/><serieUnknown values="[1]"/></dataseries>` +
		`<futureScope a="1"><nested><deeper/></nested></futureScope>`
	sink := NewSink()
	res := runImport(t, New(NewMemoryRegistry().Registries()), exportDoc(tourElement(tourAttrList, body)), sink)
	require.NoError(t, res.Err)
	tour := onlyTour(t, sink)

	require.Len(t, tour.Waypoints, 1)
	assert.Equal(t, domain.Waypoint{Name: "Hut", Symbol: "flag", Latitude: 47.5, Time: 99}, tour.Waypoints[0])
	require.Len(t, tour.Photos, 1)
	assert.Equal(t, "/p/a.jpg", tour.Photos[0].FilePathName)
	assert.Equal(t, 4, tour.Photos[0].RatingStars)
	assert.Equal(t, int64(1620000000000), tour.Photos[0].ImageExifTime)
	assert.Equal(t, []domain.TourReference{{Label: "climb", StartIndex: 3, EndIndex: 9}}, tour.TourReferences)
	require.NotNil(t, tour.Series)
	assert.Equal(t, []int{0, 1, 2}, tour.Series.Time)
	assert.Equal(t, []float32{80.5, 0, 90}, tour.Series.Pulse)
	assert.Equal(t, []bool{true, false}, tour.Series.VisiblePointsSurfing)
}

func TestUnresolvedSensorIsNonFatal(t *testing.T) {
	mem := NewMemoryRegistry()
	mem.AddSensor(domain.Sensor{SensorID: 7, Name: "HRM"})
	var logs bytes.Buffer
	im := New(mem.Registries())
	im.Logger = slog.New(slog.NewTextHandler(&logs, nil))

	body := `<sensorvalues>` +
		`<sensorvalue sensorId="7" batteryLevel_Start="90"/>` +
		`<sensorvalue sensorId="99"/>` +
		`</sensorvalues>`
	sink := NewSink()
	res := runImport(t, im, exportDoc(tourElement(tourAttrList, body)), sink)
	require.NoError(t, res.Err)
	require.Equal(t, 1, res.Count(OutcomeImported))
	assert.Equal(t, []int64{99}, res.Outcomes[0].UnresolvedSensors)

	tour := onlyTour(t, sink)
	require.Len(t, tour.SensorReadings, 2)
	require.NotNil(t, tour.SensorReadings[0].Sensor)
	assert.Equal(t, "HRM", tour.SensorReadings[0].Sensor.Name)
	assert.Equal(t, int16(90), tour.SensorReadings[0].BatteryLevelStart)
	assert.Equal(t, int16(-1), tour.SensorReadings[0].BatteryLevelEnd)
	assert.Nil(t, tour.SensorReadings[1].Sensor)
	assert.Equal(t, float32(-1), tour.SensorReadings[1].BatteryVoltageEnd)

	assert.Contains(t, logs.String(), "sensor_id=99")
	assert.Contains(t, logs.String(), "path=/data/exports/ride.mt")
}

func TestGateSkipsWithoutParsing(t *testing.T) {
	calls := 0
	im := New(NewMemoryRegistry().Registries())
	im.newSource = func(io.Reader) eventSource {
		calls++
		return nil
	}
	sink := NewSink()
	res := runImport(t, im, `<?xml version="1.0"?><gpx><trk/></gpx>`, sink)
	assert.Equal(t, StatusSkipped, res.Status)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Outcomes)
	assert.Equal(t, 0, calls)
	assert.False(t, sink.FileProducedValidData)
}

func TestTruncatedFileContributesNothing(t *testing.T) {
	mem := NewMemoryRegistry()
	im := New(mem.Registries())
	complete := tourElement(tourAttrList, `<tags><name>kept?</name></tags>`)
	doc := exportDoc(complete) + "\n"
	doc = doc[:len(doc)-len("</mt>\n")] + `<tour calories="1"><markers><marker time="3">`

	sink := NewSink()
	res := runImport(t, im, doc, sink)
	assert.Equal(t, StatusFailed, res.Status)
	require.Error(t, res.Err)
	assert.Equal(t, 1, res.Count(OutcomeFailed))
	assert.Empty(t, sink.NewlyImported)
	assert.False(t, sink.FileProducedValidData)
	assert.Equal(t, 0, mem.TagCount())
}

func TestSiblingScopesAttachToPrecedingTour(t *testing.T) {
	second := append([]string{}, tourAttrList...)
	second[0] = `tourStartTime="2021-06-01T07:00+02:00[Europe/Berlin]"`
	doc := exportDoc(
		tourElement(tourAttrList, ""),
		`<tourtype><name>Hiking</name></tourtype>`,
		`<tags><name>alps</name><name>summit</name><name>alps</name></tags>`,
		`<markers><marker time="1"><label>Hut</label></marker></markers>`,
		tourElement(second, ""),
	)
	sink := NewSink()
	res := runImport(t, New(NewMemoryRegistry().Registries()), doc, sink)
	require.NoError(t, res.Err)

	tours := sink.Tours()
	require.Len(t, tours, 2)
	require.NotNil(t, tours[0].TourType)
	assert.Equal(t, "Hiking", tours[0].TourType.Name)
	assert.Equal(t, []string{"alps", "summit"}, tours[0].PendingTagNames)
	assert.Len(t, tours[0].Tags, 2)
	assert.Len(t, tours[0].Markers, 1)
	assert.Nil(t, tours[1].TourType)
	assert.Nil(t, tours[1].Markers)
	assert.Equal(t, 6, tours[1].StartMonth)
	assert.True(t, sink.NewTagWasCreated)
}

func TestTagsBeforeFirstTourGoToIt(t *testing.T) {
	second := append([]string{}, tourAttrList...)
	second[0] = `tourStartTime="2021-06-01T07:00+02:00[Europe/Berlin]"`
	doc := exportDoc(
		`<tags><name>club</name></tags>`,
		`<tourtype><name>Cycling</name></tourtype>`,
		`<markers><marker time="1"><label>Dropped</label></marker></markers>`,
		tourElement(tourAttrList, `<tags><name>alps</name></tags>`),
		tourElement(second, `<tourtype><name>Hiking</name></tourtype>`),
	)
	sink := NewSink()
	res := runImport(t, New(NewMemoryRegistry().Registries()), doc, sink)
	require.NoError(t, res.Err)

	tours := sink.Tours()
	require.Len(t, tours, 2)
	assert.Equal(t, []string{"club", "alps"}, tours[0].PendingTagNames)
	require.NotNil(t, tours[0].TourType)
	assert.Equal(t, "Cycling", tours[0].TourType.Name)
	assert.Nil(t, tours[0].Markers)

	assert.Nil(t, tours[1].PendingTagNames)
	require.NotNil(t, tours[1].TourType)
	assert.Equal(t, "Hiking", tours[1].TourType.Name)
}

func TestTagCreationSignaling(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryRegistry()

	tags, created, err := resolveTags(ctx, []string{"gravel"}, mem)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
	assert.Len(t, created, 1)
	assert.Equal(t, 1, mem.TagCount())

	tags, created, err = resolveTags(ctx, []string{"gravel"}, mem)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
	assert.Empty(t, created)
	assert.Equal(t, 1, mem.TagCount())

	name := "Ride"
	tt, wasCreated, err := resolveType(ctx, &name, mem)
	require.NoError(t, err)
	assert.True(t, wasCreated)
	assert.Equal(t, "Ride", tt.Name)
	_, wasCreated, err = resolveType(ctx, &name, mem)
	require.NoError(t, err)
	assert.False(t, wasCreated)

	tt, wasCreated, err = resolveType(ctx, nil, mem)
	require.NoError(t, err)
	assert.Nil(t, tt)
	assert.False(t, wasCreated)
}

func TestImportFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ride.mt")
	require.NoError(t, os.WriteFile(path, []byte(exportDoc(tourElement(tourAttrList, ""))), 0o644))

	im := New(Registries{})
	sink := NewSink()
	res := im.ImportFile(context.Background(), path, sink)
	require.NoError(t, res.Err)
	assert.Equal(t, StatusParsed, res.Status)
	tour := onlyTour(t, sink)
	assert.Equal(t, "ride.mt", tour.ImportFileName)
	assert.Equal(t, dir, tour.ImportFilePath)

	res = im.ImportFile(context.Background(), filepath.Join(dir, "missing.mt"), NewSink())
	assert.Equal(t, StatusFailed, res.Status)
	assert.Error(t, res.Err)
}
