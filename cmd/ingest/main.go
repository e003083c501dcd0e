package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wellness-backend-go/internal/config"
	"wellness-backend-go/internal/db"
	"wellness-backend-go/internal/logging"
	"wellness-backend-go/internal/migrations"
	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/services"
	"wellness-backend-go/internal/sources"
)

const (
	appleArchiveName = "apple_health_export.zip"
	fitbitDirName    = "fitbit"
)

type job struct {
	source     string
	externalID string
	path       string
}

func main() {
	_ = godotenv.Load()

	source := flag.String("source", "all", "apple, fitbit or all")
	dataDir := flag.String("data-dir", "", "raw data root (default DATA_DIR)")
	appleUser := flag.String("apple-user", "", "external id for the Apple export (default APPLE_USER)")
	appleXML := flag.String("apple-xml", "", "read an extracted export.xml instead of the zip")
	fitbitUsers := flag.String("fitbit-users", "", "comma separated Fitbit users (default FITBIT_USERS)")
	workers := flag.Int("workers", 0, "concurrent ingestion jobs (default INGEST_WORKERS)")
	dryRun := flag.Bool("dry-run", false, "parse and normalise without a database")
	flag.Parse()

	var cfg config.Config
	if *dryRun {
		cfg = config.LoadOffline()
	} else {
		cfg = config.Load()
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *appleUser != "" {
		cfg.AppleUser = *appleUser
	}
	if *fitbitUsers != "" {
		cfg.FitbitUsers = splitList(*fitbitUsers)
	}
	if *workers > 0 {
		cfg.IngestWorkers = *workers
	}

	logger, closeLogs, err := logging.New(logging.Options{
		Dir:           cfg.LogDir,
		RetentionDays: cfg.LogRetentionDays,
		Level:         cfg.LogLevel,
		Format:        cfg.LogFormat,
		Service:       "ingest",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLogs()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *source, *appleXML, *dryRun, logger); err != nil {
		logger.Error("ingestion failed", zap.Error(err))
		closeLogs()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, source, appleXML string, dryRun bool, logger *zap.Logger) error {
	var store services.Repository
	if dryRun {
		store = services.NewMemoryStore()
		logger.Info("dry run, nothing is written")
	} else {
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer database.Close()
		if err := migrations.Apply(database); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		store = services.NewPostgresStore(database, cfg.UpsertBatchSize, cfg.UpsertBatchRetries, logger)
	}

	jobs, err := plan(cfg, source, appleXML, logger)
	if err != nil {
		return err
	}
	svc := services.NewIngestService(store, logger)

	workers := cfg.IngestWorkers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, j := range jobs {
		j := j
		g.Go(func() error {
			var report services.IngestReport
			var err error
			switch {
			case j.source == models.SourceFitbit:
				report, err = svc.IngestFitbit(gctx, j.externalID, j.path)
			case strings.HasSuffix(j.path, ".xml"):
				report, err = svc.IngestAppleXML(gctx, j.externalID, j.path)
			default:
				report, err = svc.IngestApple(gctx, j.externalID, j.path)
			}
			if err != nil {
				return fmt.Errorf("%s/%s: %w", j.source, j.externalID, err)
			}
			logger.Info("job done",
				zap.String("source", report.Source),
				zap.String("user", report.ExternalID),
				zap.Int("days", report.Days))
			return nil
		})
	}
	return g.Wait()
}

func plan(cfg config.Config, source, appleXML string, logger *zap.Logger) ([]job, error) {
	var jobs []job
	if source == "apple" || source == "all" {
		path := filepath.Join(cfg.DataDir, appleArchiveName)
		if appleXML != "" {
			path = appleXML
		}
		jobs = append(jobs, job{source: models.SourceApple, externalID: cfg.AppleUser, path: path})
	}
	if source == "fitbit" || source == "all" {
		folders := sources.FitbitUserFolders(filepath.Join(cfg.DataDir, fitbitDirName), cfg.FitbitUsers, logger)
		for _, user := range cfg.FitbitUsers {
			if dir, ok := folders[user]; ok {
				jobs = append(jobs, job{source: models.SourceFitbit, externalID: user, path: dir})
			}
		}
	}
	if source != "apple" && source != "fitbit" && source != "all" {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	if len(jobs) == 0 {
		return nil, errors.New("nothing to ingest")
	}
	return jobs, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
