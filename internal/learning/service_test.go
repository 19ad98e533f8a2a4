package learning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/keylock"
)

type memHistory struct {
	campaigns map[string][]domain.CampaignRecord
	err       error
}

func (m *memHistory) GetUserHistoricalCampaigns(_ context.Context, userID string) ([]domain.CampaignRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.campaigns[userID], nil
}

type brokenProfileStore struct{ err error }

func (b brokenProfileStore) LoadProfile(context.Context, string) (*domain.UserLearningProfile, error) {
	return nil, b.err
}

func (b brokenProfileStore) SaveProfile(context.Context, *domain.UserLearningProfile) error {
	return errors.New("unexpected save")
}

func newTestService(t *testing.T, history *memHistory, gen TextGenerator) (*Service, *MemoryProfileStore, *MemoryModelStore) {
	t.Helper()
	profiles := NewMemoryProfileStore()
	models := NewMemoryModelStore()
	deps := Deps{Profiles: profiles, Models: models, Insights: newGenerator(t, gen, 0)}
	if history != nil {
		deps.Campaigns = history
	}
	return NewService(DefaultConfig(), deps), profiles, models
}

func TestAnalyzeCampaignFallbackInsight(t *testing.T) {
	gen := &stubGenerator{err: errors.New("model overloaded")}
	svc, profiles, _ := newTestService(t, &memHistory{}, gen)

	res, err := svc.AnalyzeCampaignPerformance(context.Background(), "user-1", map[string]interface{}{
		"id":           "camp-1",
		"roi":          25.0,
		"content_type": "video",
		"platforms":    []interface{}{"instagram"},
		"budget":       2500,
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.InsightsExtracted)
	require.Len(t, res.Insights, 1)

	in := res.Insights[0]
	assert.Contains(t, in.Title, "Improvement Pattern")
	lift, ok := in.LiftFor(domain.MetricROI)
	require.True(t, ok)
	assert.Equal(t, 25.0, lift)
	assert.Equal(t, domain.SourceFallback, in.Source)
	assert.Equal(t, "camp-1", in.CampaignID)
	assert.Len(t, gen.prompts, 1)

	p, err := profiles.LoadProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalCampaignsAnalyzed)
	assert.Equal(t, 1, p.InsightCount())
	assert.Equal(t, res.UpdatedProfileConfidence, p.LearningConfidence)
	assert.GreaterOrEqual(t, p.LearningConfidence, 0.0)
	assert.LessOrEqual(t, p.LearningConfidence, 1.0)
}

func TestAnalyzeCampaignBelowThreshold(t *testing.T) {
	history := &memHistory{campaigns: map[string][]domain.CampaignRecord{
		"user-1": {{ID: "old-1", ROI: 20}, {ID: "old-2", ROI: 20}},
	}}
	svc, profiles, _ := newTestService(t, history, nil)

	res, err := svc.AnalyzeCampaignPerformance(context.Background(), "user-1", map[string]interface{}{"id": "camp-1", "roi": 25.0})
	require.NoError(t, err)
	assert.Equal(t, 0, res.InsightsExtracted)
	assert.NotNil(t, res.Insights)

	p, err := profiles.LoadProfile(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalCampaignsAnalyzed)
	assert.Equal(t, 0.0, p.LearningConfidence)
}

func TestAnalyzeCampaignExcludesItselfFromHistory(t *testing.T) {
	history := &memHistory{campaigns: map[string][]domain.CampaignRecord{
		"user-1": {{ID: "camp-1", ROI: 25}},
	}}
	svc, _, _ := newTestService(t, history, nil)

	res, err := svc.AnalyzeCampaignPerformance(context.Background(), "user-1", map[string]interface{}{"id": "camp-1", "roi": 25.0})
	require.NoError(t, err)
	require.Equal(t, 1, res.InsightsExtracted)
	assert.Equal(t, 0, res.Insights[0].SampleSize)
}

func TestAnalyzeCampaignHistoryFailureDegrades(t *testing.T) {
	svc, _, _ := newTestService(t, &memHistory{err: errors.New("db down")}, nil)

	res, err := svc.AnalyzeCampaignPerformance(context.Background(), "user-1", map[string]interface{}{"roi": 40.0})
	require.NoError(t, err)
	assert.Equal(t, 1, res.InsightsExtracted)
}

func TestAnalyzeCampaignMissingUser(t *testing.T) {
	svc, _, _ := newTestService(t, nil, nil)
	_, err := svc.AnalyzeCampaignPerformance(context.Background(), "", map[string]interface{}{"roi": 40.0})
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestAnalyzeCampaignCancelledLeavesNoTrace(t *testing.T) {
	svc, profiles, models := newTestService(t, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.AnalyzeCampaignPerformance(ctx, "user-1", map[string]interface{}{"roi": 40.0})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = profiles.LoadProfile(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrProfileNotFound)
	_, err = models.LoadModel(context.Background(), "user-1", domain.MetricROI)
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestAnalyzeCampaignSurfacesStateError(t *testing.T) {
	svc := NewService(DefaultConfig(), Deps{
		Profiles: brokenProfileStore{err: corrupted("user-1", "profile", errors.New("bad bytes"))},
	})

	_, err := svc.AnalyzeCampaignPerformance(context.Background(), "user-1", map[string]interface{}{"roi": 40.0})
	require.Error(t, err)
	var stateErr *StateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "user-1", stateErr.UserID)
	assert.ErrorIs(t, err, ErrStateCorruption)
}

func TestAnalyzeCampaignConcurrentUsersIsolated(t *testing.T) {
	svc, profiles, _ := newTestService(t, nil, nil)
	users := []string{"alice", "bob", "carol", "dave"}
	const perUser = 15

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < perUser; i++ {
			wg.Add(1)
			go func(user string, n int) {
				defer wg.Done()
				_, err := svc.AnalyzeCampaignPerformance(context.Background(), user, map[string]interface{}{
					"id":  fmt.Sprintf("%s-%d", user, n),
					"roi": 30.0,
				})
				assert.NoError(t, err)
			}(u, i)
		}
	}
	wg.Wait()

	for _, u := range users {
		p, err := profiles.LoadProfile(context.Background(), u)
		require.NoError(t, err)
		assert.Equal(t, perUser, p.TotalCampaignsAnalyzed, u)
		assert.Equal(t, perUser, p.InsightCount(), u)
		for _, in := range p.AllInsights() {
			assert.Equal(t, u, in.UserID)
		}
	}
}

func TestGetPredictiveInsightsNewUser(t *testing.T) {
	svc, _, _ := newTestService(t, nil, nil)

	out, err := svc.GetPredictiveInsights(context.Background(), "user-1", map[string]interface{}{
		"platform": "instagram",
		"budget":   500,
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.PredictedROI)
	assert.Equal(t, 5.0, out.PredictedCTR)
	assert.True(t, out.BaselineOnly)
	assert.Equal(t, domain.ConfidenceLow, out.ConfidenceLevel)
	assert.Equal(t, domain.BudgetLow, out.BudgetLevel)
	assert.Empty(t, out.SimilarCampaigns)
	assert.Empty(t, out.Recommendations)
}

func TestGetPredictiveInsightsAfterLearning(t *testing.T) {
	history := &memHistory{campaigns: map[string][]domain.CampaignRecord{
		"user-1": {
			{ID: "old-1", Name: "Spring", Demographics: []string{"18-24", "35-44"}, Platforms: []string{"tiktok"}, ROI: 12},
			{ID: "old-2", Name: "Winter", Demographics: []string{"18-24", "25-34"}, Platforms: []string{"instagram"}, ROI: 9},
			{ID: "old-3", Name: "Other", Demographics: []string{"55+"}},
		},
	}}
	svc, _, models := newTestService(t, history, nil)

	_, err := svc.AnalyzeCampaignPerformance(context.Background(), "user-1", map[string]interface{}{
		"id":        "camp-1",
		"roi":       60.0,
		"platforms": []interface{}{"instagram"},
	})
	require.NoError(t, err)

	m, err := models.LoadModel(context.Background(), "user-1", domain.MetricROI)
	require.NoError(t, err)
	assert.Equal(t, 1, m.TrainingSampleSize)

	out, err := svc.GetPredictiveInsights(context.Background(), "user-1", map[string]interface{}{
		"platform":     "instagram",
		"demographics": []interface{}{"18-24", "25-34"},
	})
	require.NoError(t, err)
	assert.False(t, out.BaselineOnly)
	assert.Greater(t, out.PredictedROI, 5.0)
	assert.Equal(t, 1, out.TrainingSampleSize)

	require.Len(t, out.SimilarCampaigns, 2)
	assert.Equal(t, "old-2", out.SimilarCampaigns[0].CampaignID)
	assert.Equal(t, 1.0, out.SimilarCampaigns[0].Similarity)
	assert.Equal(t, 0.5, out.SimilarCampaigns[1].Similarity)
	assert.NotEmpty(t, out.Recommendations)
}

type corruptModelStore struct{}

func (corruptModelStore) LoadModel(_ context.Context, userID, metric string) (*domain.PredictionModel, error) {
	return nil, NewStateError(userID, "model:"+metric, errors.New("bad bytes"))
}

func (corruptModelStore) SaveModel(context.Context, *domain.PredictionModel) error { return nil }

func TestGetPredictiveInsightsCorruptedStateFallsBackToBaseline(t *testing.T) {
	svc := NewService(DefaultConfig(), Deps{
		Profiles: brokenProfileStore{err: NewStateError("u1", "profile", errors.New("not an object"))},
		Models:   corruptModelStore{},
		Insights: newGenerator(t, nil, 0),
	})

	out, err := svc.GetPredictiveInsights(context.Background(), "u1", map[string]interface{}{
		"platform": "instagram",
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, out.PredictedROI)
	assert.Equal(t, 5.0, out.PredictedConversionRate)
	assert.True(t, out.BaselineOnly)
	assert.Empty(t, out.Recommendations)
}

func TestGetPredictiveInsightsStoreOutageFails(t *testing.T) {
	svc := NewService(DefaultConfig(), Deps{
		Profiles: NewMemoryProfileStore(),
		Models:   failingModelStore{},
		Insights: newGenerator(t, nil, 0),
	})

	_, err := svc.GetPredictiveInsights(context.Background(), "u1", map[string]interface{}{})
	require.Error(t, err)
}

type failingModelStore struct{}

func (failingModelStore) LoadModel(context.Context, string, string) (*domain.PredictionModel, error) {
	return nil, errors.New("connection refused")
}

func (failingModelStore) SaveModel(context.Context, *domain.PredictionModel) error { return nil }

func TestLockersSatisfyLocker(t *testing.T) {
	var l Locker = keylock.New()
	unlock, err := l.Lock(context.Background(), "user-1")
	require.NoError(t, err)
	unlock()
}
