package domain

import "time"

// The setters below recompute derived timing state from values applied earlier.
// Callers that receive these values out of order must buffer them and apply them
// time zone first, then moving, paused, recorded, start, elapsed, altitude down.

// SetTimeZoneID records the tour time zone. An unknown zone id is kept as text but
// leaves the zone unresolved, so start components fall back to the offset of the
// start instant itself.
func (t *Tour) SetTimeZoneID(id string) {
	t.TimeZoneID = id
	t.loc = nil
	if id == "" {
		return
	}
	if loc, err := time.LoadLocation(id); err == nil {
		t.loc = loc
	}
}

// Location returns the resolved tour time zone, or nil when none was set.
func (t *Tour) Location() *time.Location { return t.loc }

func (t *Tour) SetMovingTime(seconds int) {
	t.MovingTime = seconds
	t.updateBreakTime()
}

func (t *Tour) SetPausedTime(seconds int64) {
	t.PausedTime = seconds
}

func (t *Tour) SetRecordedTime(seconds int64) {
	t.RecordedTime = seconds
}

// SetStartTime stores the start instant in the tour time zone and refreshes the
// calendar components and the end time.
func (t *Tour) SetStartTime(start time.Time) {
	if t.loc != nil && !start.IsZero() {
		start = start.In(t.loc)
	}
	t.StartTime = start
	if start.IsZero() {
		t.StartYear, t.StartMonth, t.StartDay = 0, 0, 0
		t.StartHour, t.StartMinute, t.StartSecond = 0, 0, 0
	} else {
		t.StartYear = start.Year()
		t.StartMonth = int(start.Month())
		t.StartDay = start.Day()
		t.StartHour = start.Hour()
		t.StartMinute = start.Minute()
		t.StartSecond = start.Second()
	}
	t.updateEndTime()
}

// SetElapsedTime stores the elapsed duration. End time follows the start, recorded
// time is derived from the paused time when the source carried none, and break
// time is what remains after moving time.
func (t *Tour) SetElapsedTime(seconds int64) {
	t.ElapsedTime = seconds
	if t.RecordedTime == 0 && seconds > 0 {
		t.RecordedTime = seconds - t.PausedTime
	}
	t.updateEndTime()
	t.updateBreakTime()
}

func (t *Tour) SetAltDown(down float32) {
	t.AltDown = down
	t.AltitudeNet = t.AltUp - down
}

func (t *Tour) updateEndTime() {
	if t.StartTime.IsZero() {
		t.EndTime = time.Time{}
		return
	}
	t.EndTime = t.StartTime.Add(time.Duration(t.ElapsedTime) * time.Second)
}

func (t *Tour) updateBreakTime() {
	if t.ElapsedTime == 0 {
		t.BreakTime = 0
		return
	}
	t.BreakTime = t.ElapsedTime - int64(t.MovingTime)
}
