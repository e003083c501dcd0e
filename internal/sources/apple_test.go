package sources

import (
	"archive/zip"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportXML = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE HealthData [
<!ELEMENT HealthData (ExportDate,Me,Record*)>
]>
<HealthData locale="en_US">
 <ExportDate value="2024-03-05 10:00:00 +0000"/>
 <Me HKCharacteristicTypeIdentifierDateOfBirth=""/>
 <Record type="HKQuantityTypeIdentifierStepCount" sourceName="Watch" unit="count" value="1200" startDate="2024-03-01 08:00:00 -0500" endDate="2024-03-01 08:10:00 -0500">
  <MetadataEntry key="HKWasUserEntered" value="0"/>
 </Record>
 <Record type="HKQuantityTypeIdentifierDistanceWalkingRunning" unit="km" value="1.5" startDate="2024-03-01 23:30:00 -0500" endDate="2024-03-01 23:50:00 -0500"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" value="HKCategoryValueSleepAnalysisAsleepCore" startDate="2024-03-02 01:00:00 +0000" endDate="2024-03-02 02:30:00 +0000"/>
 <Record type="HKCategoryTypeIdentifierSleepAnalysis" value="HKCategoryValueSleepAnalysisInBed" startDate="2024-03-02 00:45:00 +0000" endDate="2024-03-02 07:00:00 +0000"/>
 <Record type="HKQuantityTypeIdentifierBodyMass" unit="kg" value="70" startDate="2024-03-01 07:00:00 +0000" endDate="2024-03-01 07:00:00 +0000"/>
 <Record type="HKQuantityTypeIdentifierRestingHeartRate" unit="count/min" value="61" startDate="garbage" endDate="2024-03-01 07:00:00 +0000"/>
 <Record type="HKQuantityTypeIdentifierVO2Max" unit="mL/min·kg" value="41.2" startDate="2024-03-03 07:00:00 +0000" endDate="not a date"/>
 <Workout workoutActivityType="HKWorkoutActivityTypeRunning" duration="30"/>
</HealthData>
`

func TestReadAppleExport_GroupsRecognisedRecords(t *testing.T) {
	tables, err := ReadAppleExport(strings.NewReader(exportXML))
	require.NoError(t, err)

	assert.Len(t, tables[AppleStepCount], 1)
	assert.Len(t, tables[AppleDistance], 1)
	assert.Len(t, tables[AppleSleepAnalysis], 2)
	assert.Len(t, tables[AppleVO2Max], 1)
	assert.NotContains(t, tables, "HKQuantityTypeIdentifierBodyMass")
	assert.NotContains(t, tables, AppleRestingHR, "a record with an unreadable start is dropped")
	assert.Equal(t, 5, tables.Count())

	steps := tables[AppleStepCount][0]
	assert.Equal(t, "count", steps.Unit)
	assert.Equal(t, "1200", steps.Value)
	assert.Equal(t, 10*time.Minute, steps.End.Sub(steps.Start))

	distance := tables[AppleDistance][0]
	assert.Equal(t, 1, distance.Start.Day(), "wall clock of the source offset is kept")

	vo2 := tables[AppleVO2Max][0]
	assert.Equal(t, vo2.Start, vo2.End)
}

func TestReadAppleExport_MalformedDocument(t *testing.T) {
	_, err := ReadAppleExport(strings.NewReader(`<HealthData><Record type="x"`))
	assert.Error(t, err)
}

func TestReadAppleFile_Missing(t *testing.T) {
	tables, err := ReadAppleFile(filepath.Join(t.TempDir(), "export.xml"))
	var missing *MissingInputError
	require.True(t, errors.As(err, &missing))
	assert.Empty(t, tables)
}

func TestOpenAppleArchive_FindsNestedExport(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "apple_health_export.zip")
	file, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(file)
	_, err = w.Create("apple_health_export/")
	require.NoError(t, err)
	other, err := w.Create("apple_health_export/export_cda.xml")
	require.NoError(t, err)
	_, err = other.Write([]byte("<ClinicalDocument/>"))
	require.NoError(t, err)
	entry, err := w.Create("apple_health_export/export.xml")
	require.NoError(t, err)
	_, err = entry.Write([]byte(exportXML))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, file.Close())

	rc, err := OpenAppleArchive(zipPath)
	require.NoError(t, err)
	tables, err := ReadAppleExport(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Len(t, tables[AppleStepCount], 1)
}

func TestOpenAppleArchive_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenAppleArchive(filepath.Join(dir, "absent.zip"))
	var missing *MissingInputError
	assert.True(t, errors.As(err, &missing))

	zipPath := filepath.Join(dir, "empty.zip")
	file, err := os.Create(zipPath)
	require.NoError(t, err)
	w := zip.NewWriter(file)
	entry, err := w.Create("readme.txt")
	require.NoError(t, err)
	_, err = io.WriteString(entry, "nothing here")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, file.Close())

	_, err = OpenAppleArchive(zipPath)
	require.Error(t, err)
	assert.False(t, errors.As(err, &missing))
	assert.Contains(t, err.Error(), "export.xml not found")
}
