package importer

import (
	"strings"

	"tourline/internal/domain"
	"tourline/internal/tourxml"
)

// serieValues splits a values attribute of the form "[a, b, c]".
func serieValues(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ", ")
}

func parseAll[V any](values []string, parse func(string) (V, error)) []V {
	out := make([]V, len(values))
	for i, s := range values {
		// unparsable entries keep the zero value
		if v, err := parse(s); err == nil {
			out[i] = v
		}
	}
	return out
}

func serie[V any](parse func(string) (V, error), dst func(*domain.SerieData) *[]V) func(*domain.SerieData, []string) {
	return func(sd *domain.SerieData, values []string) { *dst(sd) = parseAll(values, parse) }
}

var serieSetters = map[string]func(*domain.SerieData, []string){
	"serieTime":        serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.Time }),
	"serieAltitude":    serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Altitude }),
	"serieCadence":     serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Cadence }),
	"serieDistance":    serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Distance }),
	"seriePulse":       serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Pulse }),
	"serieTemperature": serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Temperature }),
	"seriePower":       serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Power }),
	"serieSpeed":       serie(parseFloat, func(sd *domain.SerieData) *[]float32 { return &sd.Speed }),
	"serieGears":       serie(parseLong, func(sd *domain.SerieData) *[]int64 { return &sd.Gears }),
	"serieLatitude":    serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.LatitudeE6 }),
	"serieLongitude":   serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.LongitudeE6 }),

	"seriePausedTime_Start":     serie(parseLong, func(sd *domain.SerieData) *[]int64 { return &sd.PausedTimeStart }),
	"seriePausedTime_End":       serie(parseLong, func(sd *domain.SerieData) *[]int64 { return &sd.PausedTimeEnd }),
	"seriePausedTime_Data":      serie(parseLong, func(sd *domain.SerieData) *[]int64 { return &sd.PausedTimeData }),
	"seriePulseTimes":           serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.PulseTimes }),
	"seriePulseTimes_TimeIndex": serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.PulseTimeIndex }),

	"serieRunDyn_StanceTime":          serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.RunDynStanceTime }),
	"serieRunDyn_StanceTimeBalance":   serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.RunDynStanceTimeBalance }),
	"serieRunDyn_StepLength":          serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.RunDynStepLength }),
	"serieRunDyn_VerticalOscillation": serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.RunDynVerticalOscillation }),
	"serieRunDyn_VerticalRatio":       serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.RunDynVerticalRatio }),

	"serieSwim_LengthType":  serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.SwimLengthType }),
	"serieSwim_Cadence":     serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.SwimCadence }),
	"serieSwim_Strokes":     serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.SwimStrokes }),
	"serieSwim_StrokeStyle": serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.SwimStrokeStyle }),
	"serieSwim_Time":        serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.SwimTime }),

	"serieVisiblePoints_Surfing": serie(parseBool, func(sd *domain.SerieData) *[]bool { return &sd.VisiblePointsSurfing }),
	"serieBattery_Percentage":    serie(parseShort, func(sd *domain.SerieData) *[]int16 { return &sd.BatteryPercentage }),
	"serieBattery_Time":          serie(parseInt, func(sd *domain.SerieData) *[]int { return &sd.BatteryTime }),
}

// readSeries reads a dataseries scope. Each known serie element carries its samples
// in a values attribute.
func (p *fileParse) readSeries() (*domain.SerieData, error) {
	sd := &domain.SerieData{}
	for {
		ev, err := p.next()
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case tourxml.EnterScope:
			if set, ok := serieSetters[ev.Name]; ok {
				set(sd, serieValues(ev.Attrs["values"]))
			}
			if err := p.skip(ev.Name); err != nil {
				return nil, err
			}
		case tourxml.ExitScope:
			if ev.Name == scopeDataSeries {
				return sd, nil
			}
		}
	}
}
