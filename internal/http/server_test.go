package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"wellness-backend-go/internal/config"
	"wellness-backend-go/internal/models"
	"wellness-backend-go/internal/risk"
	"wellness-backend-go/internal/services"
)

const testAPIKey = "test-api-key"

type fixture struct {
	server *Server
	store  *services.MemoryStore
	router http.Handler
	userID string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := config.Config{
		JWTSecret:        "test-secret",
		JWTIssuer:        "wellness",
		AccessTTLSeconds: 3600,
		AdminAPIKeyHash:  string(hash),
	}

	store := services.NewMemoryStore()
	ctx := context.Background()
	userID, err := store.FindOrCreateUser(ctx, "kiki")
	require.NoError(t, err)
	steps, sleep, hr := 2000, 300.0, 90.0
	require.NoError(t, store.UpsertDailyMetrics(ctx, []models.DailyMetricRecord{{
		UserID: userID, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Source: models.SourceApple,
		Steps: &steps, SleepMinutes: &sleep, RestingHR: &hr,
	}}))

	registry := risk.DefaultRegistry()
	engine, err := registry.Engine(risk.DefaultModel)
	require.NoError(t, err)
	server := NewServer(store, cfg, registry, engine, services.NewRiskFeed(), nil)
	return fixture{server: server, store: store, router: server.Router(), userID: userID}
}

func (f fixture) token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	token, _, err := f.server.Tokens.CreateAccessToken(subject, roles)
	require.NoError(t, err)
	return token
}

func (f fixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var payload bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&payload).Encode(body)
	}
	req := httptest.NewRequest(method, path, &payload)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, risk.DefaultModel, resp.ActiveModel)
}

func TestIssueToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/auth/token", "", TokenRequest{APIKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPost, "/api/auth/token", "", TokenRequest{APIKey: testAPIKey})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{services.RoleAdmin}, resp.Roles)

	rec = f.do(http.MethodGet, "/api/users/kiki/daily-metrics", resp.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDailyMetrics_Access(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/users/kiki/daily-metrics", "", nil).Code)
	assert.Equal(t, http.StatusForbidden,
		f.do(http.MethodGet, "/api/users/kiki/daily-metrics", f.token(t, "bella_a", services.RoleUser), nil).Code)

	rec := f.do(http.MethodGet, "/api/users/kiki/daily-metrics", f.token(t, "kiki", services.RoleUser), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	items := raw["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "2024-03-01", item["date"])
	assert.Equal(t, 2000.0, item["steps"])
	value, present := item["hrv_sdnn"]
	assert.True(t, present)
	assert.Nil(t, value)

	rec = f.do(http.MethodGet, "/api/users/ghost/daily-metrics", f.token(t, "admin", services.RoleAdmin), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewRisk(t *testing.T) {
	f := newFixture(t)
	steps, sleep, hr := 8000, 480.0, 60.0

	rec := f.do(http.MethodPost, "/api/risk/preview", "", DailyMetricDTO{Steps: &steps, SleepMinutes: &sleep, RestingHR: &hr})
	require.Equal(t, http.StatusOK, rec.Code)
	var result risk.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 15.0, result.Score)
	assert.Equal(t, models.RiskLow, result.Level)

	rec = f.do(http.MethodPost, "/api/risk/preview?model=missing", "", DailyMetricDTO{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListModels_MarksActive(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/risk/models", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []RiskModelDTO `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 3)
	active := 0
	for _, item := range resp.Items {
		if item.Active {
			active++
			assert.Equal(t, risk.DefaultModel, item.Name)
			require.NotNil(t, item.MediumThreshold)
			assert.Equal(t, 40.0, *item.MediumThreshold)
		}
	}
	assert.Equal(t, 1, active)
}

func TestListModels_ThresholdVariantIsActive(t *testing.T) {
	f := newFixture(t)
	threshold := 50.0
	engine, err := f.server.Registry.Select(risk.ModelRuleBasedV1, &threshold)
	require.NoError(t, err)
	server := NewServer(f.store, f.server.Config, f.server.Registry, engine, services.NewRiskFeed(), nil)
	router := server.Router()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/risk/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items []RiskModelDTO `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 4)
	for _, item := range resp.Items {
		if item.Name == risk.ModelRuleBasedV1 {
			assert.False(t, item.Active)
			assert.Equal(t, 40.0, *item.MediumThreshold)
		}
		if item.Name == "rule_based_v1@medium50" {
			assert.True(t, item.Active)
			assert.Equal(t, 50.0, *item.MediumThreshold)
		}
	}
	assert.Equal(t, "rule_based_v1@medium50", resp.Items[3].Name)

	var payload bytes.Buffer
	require.NoError(t, json.NewEncoder(&payload).Encode(DailyMetricDTO{Date: "2024-03-01"}))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/risk/preview?model=rule_based_v1@medium50", &payload))
	require.Equal(t, http.StatusOK, rec.Code)
	var result risk.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "rule_based_v1@medium50", result.ModelName)
}

func TestScoreUser_AdminOnly(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/admin/users/kiki/risk/score", f.token(t, "kiki", services.RoleUser), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	admin := f.token(t, "admin", services.RoleAdmin)
	rec = f.do(http.MethodPost, "/api/admin/users/kiki/risk/score", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var scored ScoreResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scored))
	require.Equal(t, 1, scored.Days)
	assert.Equal(t, 90.0, scored.Items[0].RiskScore)
	assert.Equal(t, models.RiskHigh, scored.Items[0].RiskLevel)

	rec = f.do(http.MethodGet, "/api/users/kiki/risk", f.token(t, "kiki", services.RoleUser), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored RiskAssessmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, risk.DefaultModel, stored.ModelName)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, "2024-03-01", stored.Items[0].Date)

	rec = f.do(http.MethodGet, "/api/users/kiki/risk?model="+risk.ModelRuleBasedV2, f.token(t, "kiki", services.RoleUser), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Empty(t, stored.Items)
}

func TestIssueUserToken(t *testing.T) {
	f := newFixture(t)
	admin := f.token(t, "admin", services.RoleAdmin)

	rec := f.do(http.MethodPost, "/api/admin/users/kiki/token", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "kiki", resp.Subject)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/users/kiki/risk", resp.AccessToken, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/admin/users/ghost/token", admin, nil).Code)
}

func TestRiskSocket_StreamsScores(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.server.Feed.Run(ctx)

	srv := httptest.NewServer(f.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/risk?token="

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+f.token(t, "kiki", services.RoleUser), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+f.token(t, "admin", services.RoleAdmin), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.server.Feed.Clients() == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.server.Scoring.ScoreUser(ctx, "kiki")
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event services.RiskEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "kiki", event.ExternalID)
	assert.Equal(t, "2024-03-01", event.Date)
	assert.Equal(t, models.RiskHigh, event.RiskLevel)
}
