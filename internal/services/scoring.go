package services

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/risk"
)

var sourcePriority = map[string]int{
	models.SourceApple:  0,
	models.SourceFitbit: 1,
}

type ScoreReport struct {
	ExternalID  string
	UserID      string
	ModelName   string
	Assessments []models.RiskAssessment
}

type ScoringService struct {
	Store  Repository
	Engine *risk.Engine
	Logger *zap.Logger
	Feed   *RiskFeed
}

func NewScoringService(store Repository, engine *risk.Engine, logger *zap.Logger, feed *RiskFeed) *ScoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoringService{Store: store, Engine: engine, Logger: logger, Feed: feed}
}

// ScoreUser scores every stored day of a user with the service's engine
// and replaces the assessments of that model.
func (s *ScoringService) ScoreUser(ctx context.Context, externalID string) (ScoreReport, error) {
	return s.ScoreUserWith(ctx, externalID, s.Engine)
}

func (s *ScoringService) ScoreUserWith(ctx context.Context, externalID string, engine *risk.Engine) (ScoreReport, error) {
	report := ScoreReport{ExternalID: externalID, ModelName: engine.Model().Name}
	user, err := s.Store.FindUser(ctx, externalID)
	if err != nil {
		return report, err
	}
	report.UserID = user.ID

	records, err := s.Store.FetchDailyMetrics(ctx, user.ID)
	if err != nil {
		return report, err
	}
	picked := PickPerDate(records)
	assessments := make([]models.RiskAssessment, 0, len(picked))
	for _, record := range picked {
		assessments = append(assessments, engine.Assess(record))
	}
	if err := s.Store.UpsertRiskAssessments(ctx, assessments); err != nil {
		return report, WrapError(err, "upsert risk assessments")
	}
	report.Assessments = assessments

	now := time.Now().UTC()
	for _, a := range assessments {
		s.Feed.Publish(NewRiskEvent(externalID, a, now))
	}
	s.Logger.Info("scored user",
		zap.String("user", externalID),
		zap.String("model", report.ModelName),
		zap.Int("days", len(assessments)))
	return report, nil
}

// PickPerDate keeps one record per date: apple over fitbit, other sources
// alphabetically after those. The result is sorted by date.
func PickPerDate(records []models.DailyMetricRecord) []models.DailyMetricRecord {
	best := map[time.Time]models.DailyMetricRecord{}
	for _, r := range records {
		current, ok := best[r.Date]
		if !ok || preferSource(r.Source, current.Source) {
			best[r.Date] = r
		}
	}
	out := make([]models.DailyMetricRecord, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func preferSource(a, b string) bool {
	pa, okA := sourcePriority[a]
	pb, okB := sourcePriority[b]
	switch {
	case okA && okB:
		return pa < pb
	case okA:
		return true
	case okB:
		return false
	}
	return a < b
}
