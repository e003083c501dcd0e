package sources

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"wellness-backend-go/internal/models"
)

const (
	AppleStepCount      = "HKQuantityTypeIdentifierStepCount"
	AppleDistance       = "HKQuantityTypeIdentifierDistanceWalkingRunning"
	AppleActiveEnergy   = "HKQuantityTypeIdentifierActiveEnergyBurned"
	AppleExerciseTime   = "HKQuantityTypeIdentifierAppleExerciseTime"
	AppleRestingHR      = "HKQuantityTypeIdentifierRestingHeartRate"
	AppleVO2Max         = "HKQuantityTypeIdentifierVO2Max"
	AppleWalkingHRAvg   = "HKQuantityTypeIdentifierWalkingHeartRateAverage"
	AppleHRVSDNN        = "HKQuantityTypeIdentifierHeartRateVariabilitySDNN"
	AppleSleepAnalysis  = "HKCategoryTypeIdentifierSleepAnalysis"
	appleTimeLayout     = "2006-01-02 15:04:05 -0700"
	appleExportFilename = "export.xml"
)

var appleRecordTypes = map[string]bool{
	AppleStepCount:     true,
	AppleDistance:      true,
	AppleActiveEnergy:  true,
	AppleExerciseTime:  true,
	AppleRestingHR:     true,
	AppleVO2Max:        true,
	AppleWalkingHRAvg:  true,
	AppleHRVSDNN:       true,
	AppleSleepAnalysis: true,
}

// ReadAppleExport streams an Apple Health export.xml. Every <Record> is
// visited once and its children skipped, so memory stays proportional to
// the recognised samples rather than the document.
func ReadAppleExport(r io.Reader) (models.SampleTables, error) {
	tables := models.SampleTables{}
	decoder := xml.NewDecoder(r)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return tables, nil
		}
		if err != nil {
			return tables, fmt.Errorf("apple export: %w", err)
		}
		start, ok := token.(xml.StartElement)
		if !ok || start.Name.Local != "Record" {
			continue
		}
		sample, keep := appleSample(start.Attr)
		if err := decoder.Skip(); err != nil {
			return tables, fmt.Errorf("apple export: %w", err)
		}
		if keep {
			tables[sample.MetricID] = append(tables[sample.MetricID], sample)
		}
	}
}

func appleSample(attrs []xml.Attr) (models.RawSample, bool) {
	var recordType, unit, startRaw, endRaw, value string
	for _, attr := range attrs {
		switch attr.Name.Local {
		case "type":
			recordType = attr.Value
		case "unit":
			unit = attr.Value
		case "startDate":
			startRaw = attr.Value
		case "endDate":
			endRaw = attr.Value
		case "value":
			value = attr.Value
		}
	}
	if !appleRecordTypes[recordType] {
		return models.RawSample{}, false
	}
	start, err := time.Parse(appleTimeLayout, startRaw)
	if err != nil {
		return models.RawSample{}, false
	}
	end, err := time.Parse(appleTimeLayout, endRaw)
	if err != nil {
		end = start
	}
	return models.RawSample{
		MetricID: recordType,
		Start:    start,
		End:      end,
		Unit:     unit,
		Value:    value,
	}, true
}

// ReadAppleFile reads an already extracted export.xml.
func ReadAppleFile(filename string) (models.SampleTables, error) {
	file, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.SampleTables{}, &MissingInputError{Path: filename}
		}
		return nil, err
	}
	defer file.Close()
	return ReadAppleExport(file)
}

type archiveEntry struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (e archiveEntry) Close() error {
	entryErr := e.ReadCloser.Close()
	archiveErr := e.archive.Close()
	if entryErr != nil {
		return entryErr
	}
	return archiveErr
}

// OpenAppleArchive opens the export.xml inside an Apple Health zip without
// extracting it to disk. The first export.xml at any depth is used.
func OpenAppleArchive(zipPath string) (io.ReadCloser, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &MissingInputError{Path: zipPath}
		}
		return nil, fmt.Errorf("open apple archive: %w", err)
	}
	for _, entry := range archive.File {
		if entry.FileInfo().IsDir() || path.Base(entry.Name) != appleExportFilename {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			_ = archive.Close()
			return nil, fmt.Errorf("open %s: %w", entry.Name, err)
		}
		return archiveEntry{ReadCloser: rc, archive: archive}, nil
	}
	_ = archive.Close()
	return nil, fmt.Errorf("%s not found inside %s", appleExportFilename, zipPath)
}
