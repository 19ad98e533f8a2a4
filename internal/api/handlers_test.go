package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/learning"
	"github.com/ignite/adaptive-core/internal/performance"
	"github.com/ignite/adaptive-core/internal/pkg/httputil"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

type fakeLearning struct {
	analyzed map[string]interface{}
	err      error
}

func (f *fakeLearning) AnalyzeCampaignPerformance(_ context.Context, userID string, campaign map[string]interface{}) (*learning.AnalysisResult, error) {
	if userID == "" {
		return nil, learning.ErrMissingUserID
	}
	f.analyzed = campaign
	if f.err != nil {
		return nil, f.err
	}
	return &learning.AnalysisResult{UserID: userID, CampaignID: "c1", InsightsExtracted: 1, UpdatedProfileConfidence: 0.12}, nil
}

func (f *fakeLearning) GetPredictiveInsights(_ context.Context, userID string, _ map[string]interface{}) (*learning.PredictiveInsights, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &learning.PredictiveInsights{UserID: userID, PredictedROI: 5, BaselineOnly: true}, nil
}

func (f *fakeLearning) GetProfile(_ context.Context, userID string) (*domain.UserLearningProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.UserLearningProfile{UserID: userID}, nil
}

type fakePerformance struct {
	campaigns map[string]domain.CampaignRecord
	scheduled []string
	stopped   bool
}

func (f *fakePerformance) GetCampaign(_ context.Context, id string) (*domain.CampaignRecord, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, performance.ErrCampaignNotFound
	}
	return &c, nil
}

func (f *fakePerformance) MonitorCampaignPerformance(ctx context.Context, id string) (*domain.PerformanceMetrics, error) {
	if _, err := f.GetCampaign(ctx, id); err != nil {
		return nil, err
	}
	return &domain.PerformanceMetrics{CampaignID: id, PerformanceStatus: domain.StatusGood, PerformanceScore: 70}, nil
}

func (f *fakePerformance) AutoOptimizeCampaign(ctx context.Context, id, userID string) (*performance.OptimizeResult, error) {
	c, err := f.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, performance.ErrCampaignNotFound
	}
	return &performance.OptimizeResult{CampaignID: id, Optimized: true}, nil
}

func (f *fakePerformance) ScheduleInitialCheck(id, userID string) bool {
	if f.stopped {
		return false
	}
	f.scheduled = append(f.scheduled, id+"/"+userID)
	return true
}

func newTestRouter(t *testing.T, l *fakeLearning, p *fakePerformance) http.Handler {
	t.Helper()
	h := NewHandlers(HandlerDeps{Learning: l, Monitor: p, Optimizer: p, Scheduler: p, Campaigns: p})
	return SetupRoutes(h, NewHealthChecker(nil, nil, nil), nil, nil)
}

func newFakePerformance() *fakePerformance {
	return &fakePerformance{campaigns: map[string]domain.CampaignRecord{"c1": {ID: "c1", UserID: "u1"}}}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	t.Helper()
	var body httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAnalyzeCampaign(t *testing.T) {
	l := &fakeLearning{}
	rec := do(t, newTestRouter(t, l, newFakePerformance()), http.MethodPost, "/api/users/u1/campaigns/analyze", `{"id":"c1","roi":25}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var res learning.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "u1", res.UserID)
	assert.Equal(t, 1, res.InsightsExtracted)
	assert.Equal(t, 25.0, l.analyzed["roi"])
}

func TestAnalyzeCampaign_InvalidJSON(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeLearning{}, newFakePerformance()), http.MethodPost, "/api/users/u1/campaigns/analyze", `{"roi":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeError(t, rec).Code)
}

func TestLearningErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"state corruption", learning.NewStateError("u1", "insights", errors.New("not an object")), http.StatusUnprocessableEntity, "state_corruption"},
		{"wrapped state corruption", errors.Join(errors.New("load"), learning.NewStateError("u1", "model:roi", nil)), http.StatusUnprocessableEntity, "state_corruption"},
		{"no profile", learning.ErrProfileNotFound, http.StatusNotFound, "not_found"},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
		{"unexpected", errors.New("redis: connection refused"), http.StatusInternalServerError, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeLearning{err: tt.err}, newFakePerformance())

			rec := do(t, router, http.MethodPost, "/api/users/u1/predictions", `{"platform":"instagram"}`)
			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Error, "connection refused")

			rec = do(t, router, http.MethodGet, "/api/users/u1/profile", "")
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPredictiveInsights(t *testing.T) {
	rec := do(t, newTestRouter(t, &fakeLearning{}, newFakePerformance()), http.MethodPost, "/api/users/u1/predictions", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"predicted_roi":5`)
	assert.Contains(t, rec.Body.String(), `"baseline_only":true`)
}

func TestCampaignPerformance(t *testing.T) {
	router := newTestRouter(t, &fakeLearning{}, newFakePerformance())

	rec := do(t, router, http.MethodGet, "/api/campaigns/c1/performance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"performance_status":"good"`)

	rec = do(t, router, http.MethodGet, "/api/campaigns/nope/performance", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Code)
}

func TestOptimizeCampaign(t *testing.T) {
	router := newTestRouter(t, &fakeLearning{}, newFakePerformance())

	rec := do(t, router, http.MethodPost, "/api/campaigns/c1/optimize", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/campaigns/c1/optimize?user_id=u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPost, "/api/campaigns/c1/optimize?user_id=u1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"optimized":true`)
}

func TestCampaignLaunched(t *testing.T) {
	p := newFakePerformance()
	router := newTestRouter(t, &fakeLearning{}, p)

	rec := do(t, router, http.MethodPost, "/api/campaigns/c1/launched?user_id=u2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, p.scheduled)

	rec = do(t, router, http.MethodPost, "/api/campaigns/c1/launched?user_id=u1", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"c1/u1"}, p.scheduled)

	p.stopped = true
	rec = do(t, router, http.MethodPost, "/api/campaigns/c1/launched?user_id=u1", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	telemetry.New(reg).Analysis("ok")

	h := NewHandlers(HandlerDeps{Learning: &fakeLearning{}})
	router := SetupRoutes(h, nil, reg, []string{"https://app.example.com"})

	rec := do(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `adaptive_core_campaign_analyses_total{result="ok"} 1`)
}

func TestCORSPreflight(t *testing.T) {
	router := SetupRoutes(NewHandlers(HandlerDeps{}), nil, nil, []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/users/u1/predictions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
