package sources

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"wellness-backend-go/internal/models"
)

const (
	FitbitSteps         = "fitbit.steps"
	FitbitDistance      = "fitbit.distance"
	FitbitCalories      = "fitbit.calories"
	FitbitActiveMinutes = "fitbit.active_minutes"
	FitbitSleepAsleep   = "fitbit.sleep_asleep"
	FitbitHeartRate     = "fitbit.heart_rate"

	fitbitActivityFile  = "dailyActivity_merged.csv"
	fitbitStepsFile     = "dailySteps_merged.csv"
	fitbitSleepFile     = "sleepDay_merged.csv"
	fitbitHeartRateFile = "heartrate_seconds_merged.csv"
)

// columnAliases lists the acceptable header names per logical column, most
// preferred first. Export versions renamed several of them.
var columnAliases = map[string][]string{
	"activity_date":  {"ActivityDate", "ActivityDay", "Date"},
	"step_date":      {"ActivityDay", "ActivityDate", "Date"},
	"step_total":     {"StepTotal", "Steps"},
	"total_steps":    {"TotalSteps"},
	"distance":       {"Distance", "TotalDistance"},
	"calories":       {"Calories"},
	"very_active":    {"VeryActiveMinutes"},
	"fairly_active":  {"FairlyActiveMinutes"},
	"sleep_date":     {"SleepDay", "Date"},
	"minutes_asleep": {"TotalMinutesAsleep"},
	"hr_time":        {"Time", "Timestamp"},
	"hr_value":       {"Value", "HeartRate"},
}

var fitbitTimeLayouts = []string{
	"1/2/2006 3:04:05 PM",
	"1/2/2006",
	"2006-01-02",
	"2006-01-02 15:04:05",
}

type csvTable struct {
	columns map[string]int
	rows    [][]string
}

// resolve maps a logical column to its index using the alias list. The
// lookup happens once per file.
func (t csvTable) resolve(logical string) (int, bool) {
	for _, alias := range columnAliases[logical] {
		if idx, ok := t.columns[alias]; ok {
			return idx, true
		}
	}
	return -1, false
}

func (t csvTable) empty() bool {
	return len(t.rows) == 0
}

// ReadFitbitFolder loads the daily CSV files of one Fitbit user. Every file
// is optional: a missing or unreadable file is logged and contributes no
// samples.
func ReadFitbitFolder(dir string, logger *zap.Logger) models.SampleTables {
	if logger == nil {
		logger = zap.NewNop()
	}
	activity := loadCSV(filepath.Join(dir, fitbitActivityFile), logger)
	steps := loadCSV(filepath.Join(dir, fitbitStepsFile), logger)
	sleep := loadCSV(filepath.Join(dir, fitbitSleepFile), logger)
	heartRate := loadCSV(filepath.Join(dir, fitbitHeartRateFile), logger)

	tables := models.SampleTables{}
	add := func(samples []models.RawSample) {
		for _, s := range samples {
			tables[s.MetricID] = append(tables[s.MetricID], s)
		}
	}

	if !steps.empty() {
		add(columnSamples(steps, "step_date", "step_total", FitbitSteps, "count", logger))
	} else if !activity.empty() {
		add(columnSamples(activity, "activity_date", "total_steps", FitbitSteps, "count", logger))
	}
	if !activity.empty() {
		add(columnSamples(activity, "activity_date", "distance", FitbitDistance, "mi", logger))
		add(columnSamples(activity, "activity_date", "calories", FitbitCalories, "kcal", logger))
		add(activeMinuteSamples(activity, logger))
	}
	if !sleep.empty() {
		add(columnSamples(sleep, "sleep_date", "minutes_asleep", FitbitSleepAsleep, "min", logger))
	}
	if !heartRate.empty() {
		add(columnSamples(heartRate, "hr_time", "hr_value", FitbitHeartRate, "bpm", logger))
	}
	return tables
}

// FitbitUserFolders returns the folder of each user under root, skipping
// users whose folder does not exist.
func FitbitUserFolders(root string, users []string, logger *zap.Logger) map[string]string {
	if logger == nil {
		logger = zap.NewNop()
	}
	folders := make(map[string]string, len(users))
	for _, user := range users {
		dir := filepath.Join(root, user)
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			logger.Warn("skipping fitbit user, folder missing", zap.String("user", user), zap.String("dir", dir))
			continue
		}
		folders[user] = dir
	}
	return folders
}

func loadCSV(filename string, logger *zap.Logger) csvTable {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Warn("missing fitbit file", zap.Error(&MissingInputError{Path: filename}))
		} else {
			logger.Error("failed to open fitbit file", zap.String("path", filename), zap.Error(err))
		}
		return csvTable{}
	}
	defer file.Close()
	table, err := parseCSV(file)
	if err != nil {
		logger.Error("failed to read fitbit file", zap.String("path", filename), zap.Error(err))
		return csvTable{}
	}
	logger.Info("loaded fitbit file", zap.String("file", filepath.Base(filename)), zap.Int("rows", len(table.rows)))
	return table
}

func parseCSV(r io.Reader) (csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return csvTable{}, nil
	}
	if err != nil {
		return csvTable{}, err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return csvTable{}, err
	}
	return csvTable{columns: columns, rows: rows}, nil
}

func columnSamples(t csvTable, dateCol, valueCol, metricID, unit string, logger *zap.Logger) []models.RawSample {
	dateIdx, ok := t.resolve(dateCol)
	if !ok {
		logger.Warn("fitbit date column not found", zap.String("metric", metricID), zap.Strings("aliases", columnAliases[dateCol]))
		return nil
	}
	valueIdx, ok := t.resolve(valueCol)
	if !ok {
		logger.Warn("fitbit value column not found", zap.String("metric", metricID), zap.Strings("aliases", columnAliases[valueCol]))
		return nil
	}
	samples := make([]models.RawSample, 0, len(t.rows))
	for _, row := range t.rows {
		if dateIdx >= len(row) || valueIdx >= len(row) {
			continue
		}
		ts, err := parseFitbitTime(row[dateIdx])
		if err != nil {
			continue
		}
		samples = append(samples, models.RawSample{
			MetricID: metricID,
			Start:    ts,
			End:      ts,
			Unit:     unit,
			Value:    strings.TrimSpace(row[valueIdx]),
		})
	}
	return samples
}

// activeMinuteSamples derives active minutes as very plus fairly active
// minutes. Rows where either part is unparseable carry no value.
func activeMinuteSamples(t csvTable, logger *zap.Logger) []models.RawSample {
	dateIdx, ok := t.resolve("activity_date")
	if !ok {
		return nil
	}
	veryIdx, okVery := t.resolve("very_active")
	fairlyIdx, okFairly := t.resolve("fairly_active")
	if !okVery || !okFairly {
		logger.Debug("fitbit active minute columns not found")
		return nil
	}
	samples := make([]models.RawSample, 0, len(t.rows))
	for _, row := range t.rows {
		if dateIdx >= len(row) || veryIdx >= len(row) || fairlyIdx >= len(row) {
			continue
		}
		ts, err := parseFitbitTime(row[dateIdx])
		if err != nil {
			continue
		}
		value := ""
		very, errVery := strconv.ParseFloat(strings.TrimSpace(row[veryIdx]), 64)
		fairly, errFairly := strconv.ParseFloat(strings.TrimSpace(row[fairlyIdx]), 64)
		if errVery == nil && errFairly == nil {
			value = strconv.FormatFloat(very+fairly, 'f', -1, 64)
		}
		samples = append(samples, models.RawSample{
			MetricID: FitbitActiveMinutes,
			Start:    ts,
			End:      ts,
			Unit:     "min",
			Value:    value,
		})
	}
	return samples
}

func parseFitbitTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range fitbitTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised fitbit timestamp %q", raw)
}
