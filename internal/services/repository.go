package services

import (
	"context"

	"wellness-backend-go/internal/models"
)

// Repository is the storage boundary of the pipelines. Upserts replace any
// existing row with the same key: (user_id, date, source) for daily
// metrics and (user_id, date, model_name) for assessments.
type Repository interface {
	// FindOrCreateUser is idempotent for a given external id.
	FindOrCreateUser(ctx context.Context, externalID string) (string, error)
	FindUser(ctx context.Context, externalID string) (models.User, error)
	UpsertDailyMetrics(ctx context.Context, records []models.DailyMetricRecord) error
	FetchDailyMetrics(ctx context.Context, userID string) ([]models.DailyMetricRecord, error)
	UpsertRiskAssessments(ctx context.Context, records []models.RiskAssessment) error
	FetchRiskAssessments(ctx context.Context, userID, modelName string) ([]models.RiskAssessment, error)
}

// chunk splits n items into consecutive [start, end) windows of at most size.
func chunk(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	out := [][2]int{}
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
