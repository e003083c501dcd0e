// Package normalize turns per-metric daily series into canonical daily
// records.
package normalize

import (
	"sort"
	"strings"
	"time"

	"wellness-backend-go/internal/aggregate"
	"wellness-backend-go/internal/models"
)

const (
	MilesToKM       = 1.60934
	MetersToKM      = 0.001
	KJPerKcal       = 4.184
	unitPassThrough = 1.0
)

// FieldSeries is a daily series already bound to its canonical field.
type FieldSeries struct {
	Field models.Field
	aggregate.Series
}

type Input struct {
	UserID string
	Source string
	Series []FieldSeries
}

// UnitFactor returns the multiplier converting unit into the canonical unit
// of field. Units not listed are taken as already canonical.
func UnitFactor(field models.Field, unit string) float64 {
	u := strings.TrimSpace(unit)
	switch field {
	case models.FieldDistanceKM:
		switch strings.ToLower(u) {
		case "mi", "mile", "miles":
			return MilesToKM
		case "m":
			return MetersToKM
		}
	case models.FieldActiveEnergyKcal:
		if strings.EqualFold(u, "kj") {
			return 1 / KJPerKcal
		}
	}
	return unitPassThrough
}

// Merge builds one record per date found in any series. The date index is
// computed first; each field is then filled by lookup against it, so a
// date seen by a single metric still yields a sparse record. Records are
// sorted by date.
func Merge(in Input) ([]models.DailyMetricRecord, error) {
	index := map[time.Time]struct{}{}
	for _, s := range in.Series {
		for day := range s.Values {
			index[day] = struct{}{}
		}
	}
	if len(index) == 0 {
		return nil, &NoDataError{Source: in.Source, UserID: in.UserID}
	}
	dates := make([]time.Time, 0, len(index))
	for day := range index {
		dates = append(dates, day)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	byField := map[models.Field][]FieldSeries{}
	for _, s := range in.Series {
		byField[s.Field] = append(byField[s.Field], s)
	}

	records := make([]models.DailyMetricRecord, 0, len(dates))
	for _, day := range dates {
		record := models.DailyMetricRecord{
			UserID: in.UserID,
			Date:   day,
			Source: in.Source,
		}
		for _, field := range models.AllFields {
			if value, ok := combine(byField[field], day); ok {
				record.Set(field, value)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// combine folds the converted values of every series of one field for day.
// Several series only occur when a metric was exported in several units.
func combine(series []FieldSeries, day time.Time) (float64, bool) {
	var total float64
	count := 0
	for _, s := range series {
		raw, ok := s.Values[day]
		if !ok {
			continue
		}
		value := raw * UnitFactor(s.Field, s.Unit)
		switch {
		case count == 0:
			total = value
		case s.Reduction == aggregate.Min:
			if value < total {
				total = value
			}
		default:
			total += value
		}
		count++
	}
	if count == 0 {
		return 0, false
	}
	if count > 1 && series[0].Reduction == aggregate.Mean {
		total /= float64(count)
	}
	return total, true
}

// Build aggregates every recognised table of a run and merges the result.
// Metric ids missing from the catalog are ignored.
func Build(userID, source string, tables models.SampleTables, catalog Catalog) ([]models.DailyMetricRecord, error) {
	metricIDs := make([]string, 0, len(tables))
	for id := range tables {
		metricIDs = append(metricIDs, id)
	}
	sort.Strings(metricIDs)

	in := Input{UserID: userID, Source: source}
	for _, id := range metricIDs {
		entry, ok := catalog.Lookup(id)
		if !ok {
			continue
		}
		for _, s := range aggregate.BuildSeries(id, tables[id], entry.Reduction) {
			in.Series = append(in.Series, FieldSeries{Field: entry.Field, Series: s})
		}
	}
	return Merge(in)
}
