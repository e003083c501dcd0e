package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wellness-backend-go/internal/models"
)

type dailyKey struct {
	userID string
	date   time.Time
	source string
}

type riskKey struct {
	userID string
	date   time.Time
	model  string
}

// MemoryStore is an in-process Repository with the same replace-on-conflict
// behaviour as PostgresStore.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	metrics map[dailyKey]models.DailyMetricRecord
	risks   map[riskKey]models.RiskAssessment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   map[string]models.User{},
		metrics: map[dailyKey]models.DailyMetricRecord{},
		risks:   map[riskKey]models.RiskAssessment{},
	}
}

func (s *MemoryStore) FindOrCreateUser(_ context.Context, externalID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user, ok := s.users[externalID]; ok {
		return user.ID, nil
	}
	user := models.User{ID: uuid.NewString(), ExternalID: externalID, CreatedAt: time.Now().UTC()}
	s.users[externalID] = user
	return user.ID, nil
}

func (s *MemoryStore) FindUser(_ context.Context, externalID string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[externalID]
	if !ok {
		return models.User{}, ErrNotFound("User not found")
	}
	return user, nil
}

func (s *MemoryStore) UpsertDailyMetrics(_ context.Context, records []models.DailyMetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.metrics[dailyKey{userID: r.UserID, date: r.Date, source: r.Source}] = r
	}
	return nil
}

func (s *MemoryStore) FetchDailyMetrics(_ context.Context, userID string) ([]models.DailyMetricRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.DailyMetricRecord{}
	for key, r := range s.metrics {
		if key.userID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Source < out[j].Source
	})
	return out, nil
}

func (s *MemoryStore) UpsertRiskAssessments(_ context.Context, records []models.RiskAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.risks[riskKey{userID: r.UserID, date: r.Date, model: r.ModelName}] = r
	}
	return nil
}

func (s *MemoryStore) FetchRiskAssessments(_ context.Context, userID, modelName string) ([]models.RiskAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.RiskAssessment{}
	for key, r := range s.risks {
		if key.userID == userID && key.model == modelName {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
