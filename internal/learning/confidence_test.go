package learning

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/adaptive-core/internal/domain"
)

func TestCategorizeBudget(t *testing.T) {
	tests := []struct {
		amount float64
		want   domain.BudgetLevel
	}{
		{-100, domain.BudgetLow},
		{0, domain.BudgetLow},
		{999.99, domain.BudgetLow},
		{1000, domain.BudgetMedium},
		{4999.99, domain.BudgetMedium},
		{5000, domain.BudgetHigh},
		{19999.99, domain.BudgetHigh},
		{20000, domain.BudgetVeryHigh},
		{1e9, domain.BudgetVeryHigh},
		{math.Inf(1), domain.BudgetVeryHigh},
		{math.Inf(-1), domain.BudgetLow},
		{math.NaN(), domain.BudgetLow},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeBudget(tt.amount), "amount %v", tt.amount)
	}
}

func TestDetermineConfidenceLevel(t *testing.T) {
	sizes := []int{0, 49, 50, 199, 200, 1000}
	want := []domain.ConfidenceLevel{
		domain.ConfidenceLow, domain.ConfidenceLow,
		domain.ConfidenceMedium, domain.ConfidenceMedium,
		domain.ConfidenceHigh, domain.ConfidenceHigh,
	}
	for i, n := range sizes {
		assert.Equal(t, want[i], DetermineConfidenceLevel(n), "sample size %d", n)
	}
	assert.Equal(t, domain.ConfidenceLow, DetermineConfidenceLevel(-5))
}

func TestDemographicsSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, DemographicsSimilarity(nil, nil))
	assert.Equal(t, 0.0, DemographicsSimilarity([]string{"a"}, nil))
	assert.Equal(t, 0.0, DemographicsSimilarity(nil, []string{"a"}))
	assert.Equal(t, 1.0, DemographicsSimilarity([]string{"a", "b"}, []string{"b", "a"}))
	assert.Equal(t, 0.5, DemographicsSimilarity([]string{"a", "b"}, []string{"a", "c"}))
	assert.Equal(t, 0.5, DemographicsSimilarity([]string{"a"}, []string{"a", "b"}))
	assert.Equal(t, 0.0, DemographicsSimilarity([]string{"a"}, []string{"b"}))
	assert.Equal(t, 1.0, DemographicsSimilarity([]string{"a", "a"}, []string{"a"}))
}

func TestDemographicsSimilarityIsCaseSensitive(t *testing.T) {
	assert.Equal(t, 0.0, DemographicsSimilarity([]string{"Millennial"}, []string{"millennial"}))
}

func TestSignificanceScore(t *testing.T) {
	assert.Equal(t, 0.0, SignificanceScore(-10))
	assert.Equal(t, 0.0, SignificanceScore(0))
	assert.Equal(t, 0.25, SignificanceScore(25))
	assert.Equal(t, 1.0, SignificanceScore(100))
	assert.Equal(t, 1.0, SignificanceScore(500))
	assert.Equal(t, 0.0, SignificanceScore(math.NaN()))
	assert.Less(t, SignificanceScore(10), SignificanceScore(20))
}
