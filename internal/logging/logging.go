package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	dateLayout       = "2006-01-02"
	maxRetentionDays = 7
)

type Options struct {
	Dir           string
	RetentionDays int
	Level         string
	Format        string
	Service       string
}

// New builds a logger writing to stdout and to a daily file in opts.Dir.
// The returned func flushes the logger and closes the current file.
func New(opts Options) (*zap.Logger, func(), error) {
	retention := opts.RetentionDays
	if retention <= 0 || retention > maxRetentionDays {
		retention = maxRetentionDays
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, nil, err
	}
	file, err := NewDailyFile(opts.Dir, retention, time.Now)
	if err != nil {
		return nil, nil, err
	}

	level := parseLevel(opts.Level)
	encoder := newEncoder(opts.Format)
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level),
		zapcore.NewCore(newEncoder("json"), file, level),
	)
	logger := zap.New(core, zap.AddCaller())
	if opts.Service != "" {
		logger = logger.With(zap.String("service", opts.Service))
	}
	return logger, func() {
		_ = logger.Sync()
		_ = file.Close()
	}, nil
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func newEncoder(format string) zapcore.Encoder {
	if format == "console" {
		cfg := zap.NewDevelopmentEncoderConfig()
		return zapcore.NewConsoleEncoder(cfg)
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// DailyFile is a zapcore.WriteSyncer over app-YYYY-MM-DD.log. It switches to
// a new file on the first write of a new day and prunes files older than
// the retention window.
type DailyFile struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	now           func() time.Time
	currentDate   string
	file          *os.File
}

func NewDailyFile(dir string, retentionDays int, now func() time.Time) (*DailyFile, error) {
	d := &DailyFile{dir: dir, retentionDays: retentionDays, now: now}
	if err := d.rotate(now().Format(dateLayout)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if date := d.now().Format(dateLayout); date != d.currentDate {
		if err := d.rotate(date); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

func (d *DailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	return d.file.Sync()
}

func (d *DailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return nil
	}
	err := d.file.Close()
	d.file = nil
	return err
}

func (d *DailyFile) rotate(date string) error {
	file, err := openLogFile(d.dir, date)
	if err != nil {
		return err
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file = file
	d.currentDate = date
	cleanupOldLogs(d.dir, d.retentionDays, d.now())
	return nil
}

func openLogFile(logDir, date string) (*os.File, error) {
	filename := filepath.Join(logDir, fmt.Sprintf("app-%s.log", date))
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func cleanupOldLogs(logDir string, retentionDays int, now time.Time) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -(retentionDays - 1))
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		logDate, err := time.Parse(dateLayout, datePart)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(logDir, name))
		}
	}
}
