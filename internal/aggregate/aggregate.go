// Package aggregate reduces raw samples to one value per calendar day.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"wellness-backend-go/internal/models"
)

type Reduction int

const (
	Sum Reduction = iota
	Mean
	Min
	// SleepDuration keeps segments whose category contains "Asleep" and
	// sums their length in minutes.
	SleepDuration
)

const asleepMarker = "Asleep"

func (r Reduction) String() string {
	switch r {
	case Sum:
		return "sum"
	case Mean:
		return "mean"
	case Min:
		return "min"
	case SleepDuration:
		return "sleep_duration"
	}
	return fmt.Sprintf("reduction(%d)", int(r))
}

// Additive reports whether values of separate series may be added together.
func (r Reduction) Additive() bool {
	return r == Sum || r == SleepDuration
}

// Daily groups samples by the calendar day of their start time and reduces
// each group. Values that do not parse as finite numbers are left out; a
// day whose samples are all unusable has no entry.
func Daily(samples []models.RawSample, r Reduction) map[time.Time]float64 {
	type acc struct {
		total float64
		count int
	}
	groups := map[time.Time]*acc{}
	for _, sample := range samples {
		value, ok := sampleValue(sample, r)
		if !ok {
			continue
		}
		day := models.DayOf(sample.Start)
		g, exists := groups[day]
		if !exists {
			groups[day] = &acc{total: value, count: 1}
			continue
		}
		switch r {
		case Min:
			g.total = math.Min(g.total, value)
		default:
			g.total += value
		}
		g.count++
	}

	out := make(map[time.Time]float64, len(groups))
	for day, g := range groups {
		if r == Mean {
			out[day] = g.total / float64(g.count)
			continue
		}
		out[day] = g.total
	}
	return out
}

func sampleValue(sample models.RawSample, r Reduction) (float64, bool) {
	if r == SleepDuration {
		if !strings.Contains(sample.Value, asleepMarker) {
			return 0, false
		}
		minutes := sample.End.Sub(sample.Start).Minutes()
		if minutes < 0 {
			return 0, false
		}
		return minutes, true
	}
	return ParseValue(sample.Value)
}

// ParseValue parses a raw numeric value. Malformed input is reported as
// missing rather than as an error.
func ParseValue(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// Series is the daily reduction of one metric expressed in one unit.
type Series struct {
	MetricID  string
	Unit      string
	Reduction Reduction
	Values    map[time.Time]float64
}

// BuildSeries reduces the samples of one metric, producing a separate series
// for every unit found so that unit conversion stays with the merger.
// Series are returned in unit order.
func BuildSeries(metricID string, samples []models.RawSample, r Reduction) []Series {
	byUnit := map[string][]models.RawSample{}
	for _, sample := range samples {
		byUnit[sample.Unit] = append(byUnit[sample.Unit], sample)
	}
	units := make([]string, 0, len(byUnit))
	for unit := range byUnit {
		units = append(units, unit)
	}
	sort.Strings(units)

	out := make([]Series, 0, len(units))
	for _, unit := range units {
		values := Daily(byUnit[unit], r)
		if len(values) == 0 {
			continue
		}
		out = append(out, Series{
			MetricID:  metricID,
			Unit:      unit,
			Reduction: r,
			Values:    values,
		})
	}
	return out
}
