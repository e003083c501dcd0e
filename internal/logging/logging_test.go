package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyFile_RotatesOnNewDay(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	file, err := NewDailyFile(dir, 7, clock)
	require.NoError(t, err)
	defer file.Close()

	_, err = file.Write([]byte("first\n"))
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = file.Write([]byte("second\n"))
	require.NoError(t, err)

	first, err := os.ReadFile(filepath.Join(dir, "app-2024-03-10.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "app-2024-03-11.log"))
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(second))
}

func TestDailyFile_PrunesExpiredLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"app-2024-03-01.log", "app-2024-03-08.log", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	file, err := NewDailyFile(dir, 3, func() time.Time { return now })
	require.NoError(t, err)
	defer file.Close()

	_, err = os.Stat(filepath.Join(dir, "app-2024-03-01.log"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "app-2024-03-08.log"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "notes.txt"))
	assert.NoError(t, err)
}

func TestNew_WritesToDailyFile(t *testing.T) {
	dir := t.TempDir()
	logger, cleanup, err := New(Options{Dir: dir, Level: "debug", Service: "test"})
	require.NoError(t, err)

	logger.Info("hello")
	cleanup()

	name := "app-" + time.Now().Format(dateLayout) + ".log"
	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"hello"`)
	assert.Contains(t, string(content), `"service":"test"`)
}
