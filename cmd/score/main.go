package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wellness-backend-go/internal/config"
	"wellness-backend-go/internal/db"
	"wellness-backend-go/internal/logging"
	"wellness-backend-go/internal/migrations"
	"wellness-backend-go/internal/risk"
	"wellness-backend-go/internal/services"
)

func main() {
	_ = godotenv.Load()

	users := flag.String("users", "", "comma separated external ids (default APPLE_USER and FITBIT_USERS)")
	model := flag.String("model", "", "risk model name (default RISK_MODEL)")
	modelsFile := flag.String("models-file", "", "extra YAML risk models (default RISK_MODELS_FILE)")
	flag.Parse()

	cfg := config.Load()
	if *model != "" {
		cfg.RiskModel = *model
	}
	if *modelsFile != "" {
		cfg.RiskModelsFile = *modelsFile
	}

	logger, closeLogs, err := logging.New(logging.Options{
		Dir:           cfg.LogDir,
		RetentionDays: cfg.LogRetentionDays,
		Level:         cfg.LogLevel,
		Format:        cfg.LogFormat,
		Service:       "score",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLogs()

	targets := append([]string{cfg.AppleUser}, cfg.FitbitUsers...)
	if *users != "" {
		targets = strings.Split(*users, ",")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, targets, logger); err != nil {
		logger.Error("scoring failed", zap.Error(err))
		closeLogs()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, targets []string, logger *zap.Logger) error {
	registry := risk.DefaultRegistry()
	if cfg.RiskModelsFile != "" {
		if err := registry.LoadModelsFile(cfg.RiskModelsFile); err != nil {
			return err
		}
	}
	engine, err := registry.Select(cfg.RiskModel, cfg.RiskMediumThreshold)
	if err != nil {
		return err
	}
	medium, _ := engine.Model().MediumThreshold()
	logger.Info("risk model active", zap.String("model", engine.Model().Name), zap.Float64("medium_threshold", medium))

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer database.Close()
	if err := migrations.Apply(database); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	store := services.NewPostgresStore(database, cfg.UpsertBatchSize, cfg.UpsertBatchRetries, logger)
	svc := services.NewScoringService(store, engine, logger, nil)

	for _, externalID := range targets {
		externalID = strings.TrimSpace(externalID)
		if externalID == "" {
			continue
		}
		report, err := svc.ScoreUser(ctx, externalID)
		if services.IsNotFound(err) {
			logger.Warn("no such user, skipping", zap.String("user", externalID))
			continue
		}
		if err != nil {
			return fmt.Errorf("score %s: %w", externalID, err)
		}
		counts := map[string]int{}
		for _, a := range report.Assessments {
			counts[string(a.RiskLevel)]++
		}
		logger.Info("user scored",
			zap.String("user", externalID),
			zap.Int("days", len(report.Assessments)),
			zap.Any("levels", counts))
	}
	return nil
}
