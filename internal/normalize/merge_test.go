package normalize

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellness-backend-go/internal/aggregate"
	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/sources"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func series(field models.Field, unit string, r aggregate.Reduction, values map[time.Time]float64) FieldSeries {
	return FieldSeries{Field: field, Series: aggregate.Series{MetricID: string(field), Unit: unit, Reduction: r, Values: values}}
}

func TestMerge_ConvertsMiles(t *testing.T) {
	records, err := Merge(Input{UserID: "u1", Source: models.SourceFitbit, Series: []FieldSeries{
		series(models.FieldDistanceKM, "mi", aggregate.Sum, map[time.Time]float64{day(1): 10.0}),
	}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 16.0934, *records[0].DistanceKM, 1e-6)
}

func TestMerge_UnionOfDatesKeepsSparseRecords(t *testing.T) {
	records, err := Merge(Input{UserID: "u1", Source: models.SourceApple, Series: []FieldSeries{
		series(models.FieldSteps, "count", aggregate.Sum, map[time.Time]float64{day(3): 5000, day(1): 7000}),
		series(models.FieldRestingHR, "count/min", aggregate.Mean, map[time.Time]float64{day(2): 58}),
	}})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, day(1), records[0].Date)
	assert.Equal(t, 7000, *records[0].Steps)
	assert.Nil(t, records[0].RestingHR)

	assert.Equal(t, day(2), records[1].Date)
	assert.Nil(t, records[1].Steps)
	assert.InDelta(t, 58.0, *records[1].RestingHR, 1e-9)

	assert.Equal(t, day(3), records[2].Date)
	for _, r := range records {
		assert.Equal(t, "u1", r.UserID)
		assert.Equal(t, models.SourceApple, r.Source)
		assert.Nil(t, r.SleepMinutes)
		assert.Nil(t, r.HRVSDNN)
	}
}

func TestMerge_NoData(t *testing.T) {
	_, err := Merge(Input{UserID: "u1", Source: models.SourceApple, Series: []FieldSeries{
		series(models.FieldSteps, "count", aggregate.Sum, map[time.Time]float64{}),
	}})
	var noData *NoDataError
	require.True(t, errors.As(err, &noData))
	assert.Equal(t, models.SourceApple, noData.Source)

	_, err = Merge(Input{Source: models.SourceFitbit})
	assert.True(t, errors.As(err, &noData))
}

func TestMerge_CombinesUnitsOfOneField(t *testing.T) {
	records, err := Merge(Input{UserID: "u1", Source: models.SourceApple, Series: []FieldSeries{
		series(models.FieldDistanceKM, "km", aggregate.Sum, map[time.Time]float64{day(1): 2}),
		series(models.FieldDistanceKM, "mi", aggregate.Sum, map[time.Time]float64{day(1): 1}),
		series(models.FieldActiveEnergyKcal, "kJ", aggregate.Sum, map[time.Time]float64{day(1): 418.4}),
		series(models.FieldRestingHR, "bpm", aggregate.Min, map[time.Time]float64{day(1): 60}),
		series(models.FieldRestingHR, "count/min", aggregate.Min, map[time.Time]float64{day(1): 55}),
	}})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 3.60934, *records[0].DistanceKM, 1e-9)
	assert.InDelta(t, 100.0, *records[0].ActiveEnergyKcal, 1e-9)
	assert.InDelta(t, 55.0, *records[0].RestingHR, 1e-9)
}

func TestMerge_IntegerFieldsTruncate(t *testing.T) {
	records, err := Merge(Input{UserID: "u1", Source: models.SourceApple, Series: []FieldSeries{
		series(models.FieldSteps, "count", aggregate.Sum, map[time.Time]float64{day(1): 1234.9}),
		series(models.FieldActiveMinutes, "min", aggregate.Sum, map[time.Time]float64{day(1): 30.5}),
	}})
	require.NoError(t, err)
	assert.Equal(t, 1234, *records[0].Steps)
	assert.Equal(t, 30, *records[0].ActiveMinutes)
}

func TestUnitFactor(t *testing.T) {
	assert.Equal(t, MilesToKM, UnitFactor(models.FieldDistanceKM, "mi"))
	assert.Equal(t, MetersToKM, UnitFactor(models.FieldDistanceKM, "m"))
	assert.Equal(t, 1.0, UnitFactor(models.FieldDistanceKM, "km"))
	assert.Equal(t, 1.0, UnitFactor(models.FieldSteps, "mi"), "only distance converts miles")
	assert.Equal(t, 1.0, UnitFactor(models.FieldActiveEnergyKcal, "Cal"))
}

func appleTables() models.SampleTables {
	ts := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, time.UTC) }
	return models.SampleTables{
		sources.AppleStepCount: {
			{MetricID: sources.AppleStepCount, Start: ts(1, 8), End: ts(1, 8), Unit: "count", Value: "1500"},
			{MetricID: sources.AppleStepCount, Start: ts(1, 12), End: ts(1, 12), Unit: "count", Value: "2500"},
			{MetricID: sources.AppleStepCount, Start: ts(2, 9), End: ts(2, 9), Unit: "count", Value: "oops"},
		},
		sources.AppleSleepAnalysis: {
			{MetricID: sources.AppleSleepAnalysis, Start: ts(2, 1), End: ts(2, 7), Value: "HKCategoryValueSleepAnalysisAsleepUnspecified"},
			{MetricID: sources.AppleSleepAnalysis, Start: ts(2, 0), End: ts(2, 8), Value: "HKCategoryValueSleepAnalysisInBed"},
		},
		sources.AppleHRVSDNN: {
			{MetricID: sources.AppleHRVSDNN, Start: ts(3, 6), End: ts(3, 6), Unit: "ms", Value: "40"},
			{MetricID: sources.AppleHRVSDNN, Start: ts(3, 22), End: ts(3, 22), Unit: "ms", Value: "50"},
		},
		"HKQuantityTypeIdentifierBodyMass": {
			{MetricID: "HKQuantityTypeIdentifierBodyMass", Start: ts(4, 8), End: ts(4, 8), Unit: "kg", Value: "70"},
		},
	}
}

func TestBuild_AppleCatalog(t *testing.T) {
	records, err := Build("u1", models.SourceApple, appleTables(), AppleMetrics)
	require.NoError(t, err)
	require.Len(t, records, 3, "unrecognised metrics do not add dates")

	assert.Equal(t, 4000, *records[0].Steps)
	assert.Nil(t, records[1].Steps, "a day with only malformed steps has no steps")
	assert.InDelta(t, 360.0, *records[1].SleepMinutes, 1e-9)
	assert.InDelta(t, 45.0, *records[2].HRVSDNN, 1e-9)
}

func TestBuild_IsIdempotent(t *testing.T) {
	first, err := Build("u1", models.SourceApple, appleTables(), AppleMetrics)
	require.NoError(t, err)
	second, err := Build("u1", models.SourceApple, appleTables(), AppleMetrics)
	require.NoError(t, err)
	assert.Equal(t, render(first), render(second))
}

func TestBuild_FitbitHeartRateUsesMinimum(t *testing.T) {
	ts := time.Date(2016, 4, 12, 7, 0, 0, 0, time.UTC)
	tables := models.SampleTables{
		sources.FitbitHeartRate: {
			{MetricID: sources.FitbitHeartRate, Start: ts, End: ts, Unit: "bpm", Value: "97"},
			{MetricID: sources.FitbitHeartRate, Start: ts.Add(time.Hour), End: ts.Add(time.Hour), Unit: "bpm", Value: "61"},
		},
	}
	records, err := Build("u1", models.SourceFitbit, tables, FitbitMetrics)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.InDelta(t, 61.0, *records[0].RestingHR, 1e-9)
}

func TestCatalogFor(t *testing.T) {
	_, ok := CatalogFor(models.SourceApple)
	assert.True(t, ok)
	_, ok = CatalogFor("garmin")
	assert.False(t, ok)
}

func render(records []models.DailyMetricRecord) string {
	out := ""
	for _, r := range records {
		out += r.Date.Format("2006-01-02") + r.Source
		for _, f := range models.AllFields {
			if v, ok := r.Value(f); ok {
				out += fmt.Sprintf(" %s=%v", f, v)
			}
		}
		out += "\n"
	}
	return out
}
