package learning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/adaptive-core/internal/domain"
)

func TestPredictPerformanceEmptyFeatures(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricROI, DefaultBaseline, time.Now())
	assert.Equal(t, 5.0, PredictPerformance(domain.FeatureSet{}, m))
	assert.Equal(t, 5.0, PredictPerformance(nil, m))
	assert.Equal(t, 5.0, PredictPerformance(domain.FeatureSet{"platform": "x"}, nil))
}

func TestPredictPerformanceAllNoneFeatures(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricROI, DefaultBaseline, time.Now())
	UpdateModel(m, domain.FeatureSet{"platform": "instagram"}, 50, 0.5, time.Now())

	none := domain.FeatureSet{"platform": "", "content_type": "", "budget_level": ""}
	assert.Equal(t, Baseline(m), PredictPerformance(none, m))
}

func TestPredictPerformanceIgnoresUnknownFeatures(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricROI, DefaultBaseline, time.Now())
	fs := domain.FeatureSet{"favourite_colour": "teal", "moon_phase": "full"}
	assert.Equal(t, 5.0, PredictPerformance(fs, m))
}

func TestUntrainedModelPredictsBaseline(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricCTR, DefaultBaseline, time.Now())
	fv := ExtractFeatures(map[string]interface{}{"content_type": "video", "platform": "tiktok", "budget": 3000})
	assert.InDelta(t, 5.0, PredictPerformance(fv.Set(), m), 1e-9)
}

func TestUpdateModelMovesTowardObservation(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricROI, DefaultBaseline, time.Now())
	fs := domain.FeatureSet{"platform": "instagram", "content_type": "video"}

	prev := PredictPerformance(fs, m)
	for i := 0; i < 10; i++ {
		UpdateModel(m, fs, 40, DefaultAlpha, time.Now())
		next := PredictPerformance(fs, m)
		assert.Greater(t, next, prev)
		assert.LessOrEqual(t, next, 40.0)
		prev = next
	}
	assert.Equal(t, 10, m.TrainingSampleSize)
	assert.Greater(t, m.AccuracyScore, 0.0)
	assert.LessOrEqual(t, m.AccuracyScore, 1.0)
}

func TestUpdateModelIsBounded(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricROI, DefaultBaseline, time.Now())
	fs := domain.FeatureSet{"platform": "instagram"}
	for i := 0; i < 100; i++ {
		UpdateModel(m, fs, 1e12, 1, time.Now())
	}
	assert.LessOrEqual(t, PredictPerformance(fs, m), maxObservation)
	for _, w := range m.FeatureWeights {
		assert.GreaterOrEqual(t, w, minWeight)
		assert.LessOrEqual(t, w, maxWeight)
	}
}

func TestUpdateModelSkipsUnknownFeatures(t *testing.T) {
	m := NewPredictionModel("user-1", domain.MetricROI, DefaultBaseline, time.Now())
	UpdateModel(m, domain.FeatureSet{"not_a_feature": "x"}, 30, DefaultAlpha, time.Now())

	_, learned := m.ValueEffects["not_a_feature:x"]
	assert.False(t, learned)
	assert.Equal(t, 1, m.TrainingSampleSize)
}
