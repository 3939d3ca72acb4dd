package importer

import (
	"time"

	"tourline/internal/domain"
)

// OrderedFields lists the tour attributes whose setters recompute derived timing
// from values applied before them. They are buffered during attribute intake and
// applied in exactly this order, whatever order the source used.
var OrderedFields = []string{
	"timeZoneId",
	"tourComputedTime_Moving",
	"tourDeviceTime_Paused",
	"tourDeviceTime_Recorded",
	"tourStartTime",
	"tourDeviceTime_Elapsed",
	"tourAltDown",
}

type orderedValues struct {
	timeZoneID string
	moving     int
	paused     int64
	recorded   int64
	start      time.Time
	elapsed    int64
	altDown    float32
}

var orderedSetters = map[string]func(t *domain.Tour, v *orderedValues){
	"timeZoneId":              func(t *domain.Tour, v *orderedValues) { t.SetTimeZoneID(v.timeZoneID) },
	"tourComputedTime_Moving": func(t *domain.Tour, v *orderedValues) { t.SetMovingTime(v.moving) },
	"tourDeviceTime_Paused":   func(t *domain.Tour, v *orderedValues) { t.SetPausedTime(v.paused) },
	"tourDeviceTime_Recorded": func(t *domain.Tour, v *orderedValues) { t.SetRecordedTime(v.recorded) },
	"tourStartTime":           func(t *domain.Tour, v *orderedValues) { t.SetStartTime(v.start) },
	"tourDeviceTime_Elapsed":  func(t *domain.Tour, v *orderedValues) { t.SetElapsedTime(v.elapsed) },
	"tourAltDown":             func(t *domain.Tour, v *orderedValues) { t.SetAltDown(v.altDown) },
}

// applyOrdered pushes the buffered values into the tour in OrderedFields order.
// The trace callback, when set, observes each step.
func applyOrdered(t *domain.Tour, v *orderedValues, trace func(name string)) {
	for _, name := range OrderedFields {
		if trace != nil {
			trace(name)
		}
		orderedSetters[name](t, v)
	}
}
