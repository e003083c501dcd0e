package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"wellness-backend-go/internal/models"
)

const DefaultBatchSize = 500

type PostgresStore struct {
	DB        *sqlx.DB
	BatchSize int
	// Retries is how many times a failed batch is re-sent as a whole.
	Retries    int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func NewPostgresStore(db *sqlx.DB, batchSize, retries int, logger *zap.Logger) *PostgresStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if retries < 0 {
		retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		DB:         db,
		BatchSize:  batchSize,
		Retries:    retries,
		RetryDelay: 500 * time.Millisecond,
		Logger:     logger,
	}
}

func (s *PostgresStore) FindOrCreateUser(ctx context.Context, externalID string) (string, error) {
	var id string
	err := s.DB.GetContext(ctx, &id, `
INSERT INTO users (id, external_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (external_id) DO UPDATE SET external_id = EXCLUDED.external_id
RETURNING id
`, uuid.NewString(), externalID, time.Now().UTC())
	if err != nil {
		return "", WrapError(err, "find or create user")
	}
	return id, nil
}

func (s *PostgresStore) FindUser(ctx context.Context, externalID string) (models.User, error) {
	var user models.User
	err := s.DB.GetContext(ctx, &user, `SELECT id, external_id, created_at FROM users WHERE external_id = $1`, externalID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound("User not found")
	}
	if err != nil {
		return models.User{}, WrapError(err, "find user")
	}
	return user, nil
}

const upsertDailyMetricsSQL = `
INSERT INTO daily_metrics (
  user_id, date, source, steps, distance_km, active_minutes, active_energy_kcal,
  sleep_minutes, resting_hr, vo2max, walking_hr_avg, hrv_sdnn, updated_at
) VALUES (
  :user_id, :date, :source, :steps, :distance_km, :active_minutes, :active_energy_kcal,
  :sleep_minutes, :resting_hr, :vo2max, :walking_hr_avg, :hrv_sdnn, now()
)
ON CONFLICT (user_id, date, source) DO UPDATE SET
  steps = EXCLUDED.steps,
  distance_km = EXCLUDED.distance_km,
  active_minutes = EXCLUDED.active_minutes,
  active_energy_kcal = EXCLUDED.active_energy_kcal,
  sleep_minutes = EXCLUDED.sleep_minutes,
  resting_hr = EXCLUDED.resting_hr,
  vo2max = EXCLUDED.vo2max,
  walking_hr_avg = EXCLUDED.walking_hr_avg,
  hrv_sdnn = EXCLUDED.hrv_sdnn,
  updated_at = now()
`

// UpsertDailyMetrics writes records in batches of BatchSize, one
// transaction per batch, in order.
func (s *PostgresStore) UpsertDailyMetrics(ctx context.Context, records []models.DailyMetricRecord) error {
	for _, window := range chunk(len(records), s.BatchSize) {
		batch := records[window[0]:window[1]]
		if err := s.execBatch(ctx, "daily_metrics", upsertDailyMetricsSQL, batch, window); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) FetchDailyMetrics(ctx context.Context, userID string) ([]models.DailyMetricRecord, error) {
	records := []models.DailyMetricRecord{}
	if err := s.DB.SelectContext(ctx, &records, `
SELECT user_id, date, source, steps, distance_km, active_minutes, active_energy_kcal,
       sleep_minutes, resting_hr, vo2max, walking_hr_avg, hrv_sdnn
FROM daily_metrics
WHERE user_id = $1
ORDER BY date, source
`, userID); err != nil {
		return nil, WrapError(err, "fetch daily metrics")
	}
	return records, nil
}

const upsertRiskSQL = `
INSERT INTO risk_predictions (
  user_id, date, model_name, risk_score, risk_level, updated_at
) VALUES (
  :user_id, :date, :model_name, :risk_score, :risk_level, now()
)
ON CONFLICT (user_id, date, model_name) DO UPDATE SET
  risk_score = EXCLUDED.risk_score,
  risk_level = EXCLUDED.risk_level,
  updated_at = now()
`

func (s *PostgresStore) UpsertRiskAssessments(ctx context.Context, records []models.RiskAssessment) error {
	for _, window := range chunk(len(records), s.BatchSize) {
		batch := records[window[0]:window[1]]
		if err := s.execBatch(ctx, "risk_predictions", upsertRiskSQL, batch, window); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) FetchRiskAssessments(ctx context.Context, userID, modelName string) ([]models.RiskAssessment, error) {
	records := []models.RiskAssessment{}
	if err := s.DB.SelectContext(ctx, &records, `
SELECT user_id, date, model_name, risk_score, risk_level
FROM risk_predictions
WHERE user_id = $1 AND model_name = $2
ORDER BY date
`, userID, modelName); err != nil {
		return nil, WrapError(err, "fetch risk assessments")
	}
	return records, nil
}

// execBatch sends one multi-row upsert. A failure rolls the whole batch
// back and re-sends it, up to Retries times.
func (s *PostgresStore) execBatch(ctx context.Context, table, query string, batch interface{}, window [2]int) error {
	var err error
	for attempt := 0; attempt <= s.Retries; attempt++ {
		if attempt > 0 {
			s.Logger.Warn("retrying batch",
				zap.String("table", table),
				zap.Int("from", window[0]),
				zap.Int("to", window[1]-1),
				zap.Int("attempt", attempt),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.RetryDelay * time.Duration(attempt)):
			}
		}
		if err = s.execBatchOnce(ctx, query, batch); err == nil {
			s.Logger.Debug("upserted batch", zap.String("table", table), zap.Int("from", window[0]), zap.Int("to", window[1]-1))
			return nil
		}
	}
	return fmt.Errorf("upsert %s rows %d-%d: %w", table, window[0], window[1]-1, err)
}

func (s *PostgresStore) execBatchOnce(ctx context.Context, query string, batch interface{}) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.NamedExecContext(ctx, query, batch); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
