package normalize

import (
	"wellness-backend-go/internal/aggregate"
	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/sources"
)

// MetricSpec binds a source metric id to the canonical field it feeds and
// the daily reduction that applies to it.
type MetricSpec struct {
	MetricID  string
	Field     models.Field
	Reduction aggregate.Reduction
}

type Catalog []MetricSpec

func (c Catalog) Lookup(metricID string) (MetricSpec, bool) {
	for _, entry := range c {
		if entry.MetricID == metricID {
			return entry, true
		}
	}
	return MetricSpec{}, false
}

var AppleMetrics = Catalog{
	{MetricID: sources.AppleStepCount, Field: models.FieldSteps, Reduction: aggregate.Sum},
	{MetricID: sources.AppleDistance, Field: models.FieldDistanceKM, Reduction: aggregate.Sum},
	{MetricID: sources.AppleActiveEnergy, Field: models.FieldActiveEnergyKcal, Reduction: aggregate.Sum},
	{MetricID: sources.AppleExerciseTime, Field: models.FieldActiveMinutes, Reduction: aggregate.Sum},
	{MetricID: sources.AppleRestingHR, Field: models.FieldRestingHR, Reduction: aggregate.Mean},
	{MetricID: sources.AppleVO2Max, Field: models.FieldVO2Max, Reduction: aggregate.Mean},
	{MetricID: sources.AppleWalkingHRAvg, Field: models.FieldWalkingHRAvg, Reduction: aggregate.Mean},
	{MetricID: sources.AppleHRVSDNN, Field: models.FieldHRVSDNN, Reduction: aggregate.Mean},
	{MetricID: sources.AppleSleepAnalysis, Field: models.FieldSleepMinutes, Reduction: aggregate.SleepDuration},
}

// FitbitMetrics uses the minimum of the per-second heart rate as the
// resting rate proxy.
var FitbitMetrics = Catalog{
	{MetricID: sources.FitbitSteps, Field: models.FieldSteps, Reduction: aggregate.Sum},
	{MetricID: sources.FitbitDistance, Field: models.FieldDistanceKM, Reduction: aggregate.Sum},
	{MetricID: sources.FitbitCalories, Field: models.FieldActiveEnergyKcal, Reduction: aggregate.Sum},
	{MetricID: sources.FitbitActiveMinutes, Field: models.FieldActiveMinutes, Reduction: aggregate.Sum},
	{MetricID: sources.FitbitSleepAsleep, Field: models.FieldSleepMinutes, Reduction: aggregate.Sum},
	{MetricID: sources.FitbitHeartRate, Field: models.FieldRestingHR, Reduction: aggregate.Min},
}

func CatalogFor(source string) (Catalog, bool) {
	switch source {
	case models.SourceApple:
		return AppleMetrics, true
	case models.SourceFitbit:
		return FitbitMetrics, true
	}
	return nil, false
}
