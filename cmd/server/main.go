package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"wellness-backend-go/internal/config"
	"wellness-backend-go/internal/db"
	httpapi "wellness-backend-go/internal/http"
	"wellness-backend-go/internal/logging"
	"wellness-backend-go/internal/migrations"
	"wellness-backend-go/internal/risk"
	"wellness-backend-go/internal/services"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLogs, err := logging.New(logging.Options{
		Dir:           cfg.LogDir,
		RetentionDays: cfg.LogRetentionDays,
		Level:         cfg.LogLevel,
		Format:        cfg.LogFormat,
		Service:       "server",
	})
	if err != nil {
		logger = zap.NewExample()
		logger.Warn("file logging disabled", zap.Error(err))
	} else {
		defer closeLogs()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	database, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db", zap.Error(err))
	}
	defer database.Close()
	if err := migrations.Apply(database); err != nil {
		logger.Fatal("migrations", zap.Error(err))
	}

	engine, registry, err := loadEngine(cfg)
	if err != nil {
		logger.Fatal("risk model", zap.Error(err))
	}
	logActiveModel(logger, engine)

	store := services.NewPostgresStore(database, cfg.UpsertBatchSize, cfg.UpsertBatchRetries, logger)
	feed := services.NewRiskFeed()
	go feed.Run(ctx)

	server := httpapi.NewServer(store, cfg, registry, engine, feed, logger)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	<-stop
	cancel()
	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	_ = httpServer.Shutdown(ctxShutdown)
	logger.Info("shutdown complete")
}

func loadEngine(cfg config.Config) (*risk.Engine, *risk.Registry, error) {
	registry := risk.DefaultRegistry()
	if cfg.RiskModelsFile != "" {
		if err := registry.LoadModelsFile(cfg.RiskModelsFile); err != nil {
			return nil, nil, err
		}
	}
	engine, err := registry.Select(cfg.RiskModel, cfg.RiskMediumThreshold)
	if err != nil {
		return nil, nil, err
	}
	return engine, registry, nil
}

func logActiveModel(logger *zap.Logger, engine *risk.Engine) {
	model := engine.Model()
	medium, _ := model.MediumThreshold()
	logger.Info("risk model active",
		zap.String("model", model.Name),
		zap.Float64("medium_threshold", medium),
		zap.Float64("ceiling", model.Ceiling))
}
