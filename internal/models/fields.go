package models

import "fmt"

// Field names a canonical daily metric. The string values double as the
// column names of daily_metrics and the keys of the JSON interchange.
type Field string

const (
	FieldSteps            Field = "steps"
	FieldDistanceKM       Field = "distance_km"
	FieldActiveMinutes    Field = "active_minutes"
	FieldActiveEnergyKcal Field = "active_energy_kcal"
	FieldSleepMinutes     Field = "sleep_minutes"
	FieldRestingHR        Field = "resting_hr"
	FieldVO2Max           Field = "vo2max"
	FieldWalkingHRAvg     Field = "walking_hr_avg"
	FieldHRVSDNN          Field = "hrv_sdnn"
)

var AllFields = []Field{
	FieldSteps,
	FieldDistanceKM,
	FieldActiveMinutes,
	FieldActiveEnergyKcal,
	FieldSleepMinutes,
	FieldRestingHR,
	FieldVO2Max,
	FieldWalkingHRAvg,
	FieldHRVSDNN,
}

// CanonicalUnit is the unit a field is stored in.
func (f Field) CanonicalUnit() string {
	switch f {
	case FieldSteps:
		return "count"
	case FieldDistanceKM:
		return "km"
	case FieldActiveMinutes, FieldSleepMinutes:
		return "min"
	case FieldActiveEnergyKcal:
		return "kcal"
	case FieldRestingHR, FieldWalkingHRAvg:
		return "bpm"
	case FieldVO2Max:
		return "mL/kg/min"
	case FieldHRVSDNN:
		return "ms"
	}
	return ""
}

func (f Field) Integer() bool {
	return f == FieldSteps || f == FieldActiveMinutes
}

func ParseField(raw string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == raw {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown metric field %q", raw)
}

// Value returns the numeric value of field f and whether it is present.
func (r DailyMetricRecord) Value(f Field) (float64, bool) {
	switch f {
	case FieldSteps:
		return intValue(r.Steps)
	case FieldDistanceKM:
		return floatValue(r.DistanceKM)
	case FieldActiveMinutes:
		return intValue(r.ActiveMinutes)
	case FieldActiveEnergyKcal:
		return floatValue(r.ActiveEnergyKcal)
	case FieldSleepMinutes:
		return floatValue(r.SleepMinutes)
	case FieldRestingHR:
		return floatValue(r.RestingHR)
	case FieldVO2Max:
		return floatValue(r.VO2Max)
	case FieldWalkingHRAvg:
		return floatValue(r.WalkingHRAvg)
	case FieldHRVSDNN:
		return floatValue(r.HRVSDNN)
	}
	return 0, false
}

// Set stores v into field f. Integer fields are truncated toward zero.
func (r *DailyMetricRecord) Set(f Field, v float64) {
	switch f {
	case FieldSteps:
		r.Steps = intPtr(v)
	case FieldDistanceKM:
		r.DistanceKM = floatPtr(v)
	case FieldActiveMinutes:
		r.ActiveMinutes = intPtr(v)
	case FieldActiveEnergyKcal:
		r.ActiveEnergyKcal = floatPtr(v)
	case FieldSleepMinutes:
		r.SleepMinutes = floatPtr(v)
	case FieldRestingHR:
		r.RestingHR = floatPtr(v)
	case FieldVO2Max:
		r.VO2Max = floatPtr(v)
	case FieldWalkingHRAvg:
		r.WalkingHRAvg = floatPtr(v)
	case FieldHRVSDNN:
		r.HRVSDNN = floatPtr(v)
	}
}

func intValue(v *int) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return float64(*v), true
}

func floatValue(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

func intPtr(v float64) *int {
	n := int(v)
	return &n
}

func floatPtr(v float64) *float64 {
	return &v
}
