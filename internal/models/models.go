package models

import "time"

const (
	SourceApple  = "apple"
	SourceFitbit = "fitbit"
)

type User struct {
	ID         string    `db:"id"`
	ExternalID string    `db:"external_id"`
	CreatedAt  time.Time `db:"created_at"`
}

// RawSample is one reading as it appears in a vendor export. Value stays
// unparsed text until the aggregator reduces it.
type RawSample struct {
	MetricID string
	Start    time.Time
	End      time.Time
	Unit     string
	Value    string
}

// SampleTables groups raw samples by metric id.
type SampleTables map[string][]RawSample

// Count returns the total number of samples across all metrics.
func (t SampleTables) Count() int {
	total := 0
	for _, samples := range t {
		total += len(samples)
	}
	return total
}

// DailyMetricRecord is the canonical per (user, date, source) row. A nil
// field means the metric was not measured that day.
type DailyMetricRecord struct {
	UserID           string    `db:"user_id"`
	Date             time.Time `db:"date"`
	Source           string    `db:"source"`
	Steps            *int      `db:"steps"`
	DistanceKM       *float64  `db:"distance_km"`
	ActiveMinutes    *int      `db:"active_minutes"`
	ActiveEnergyKcal *float64  `db:"active_energy_kcal"`
	SleepMinutes     *float64  `db:"sleep_minutes"`
	RestingHR        *float64  `db:"resting_hr"`
	VO2Max           *float64  `db:"vo2max"`
	WalkingHRAvg     *float64  `db:"walking_hr_avg"`
	HRVSDNN          *float64  `db:"hrv_sdnn"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

type RiskAssessment struct {
	UserID    string    `db:"user_id"`
	Date      time.Time `db:"date"`
	ModelName string    `db:"model_name"`
	RiskScore float64   `db:"risk_score"`
	RiskLevel RiskLevel `db:"risk_level"`
}

// DayOf strips the time of day from t using its own wall clock, so a
// sample recorded at 23:30 -0500 stays on that calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
