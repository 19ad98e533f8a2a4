package learning

import (
	"math"

	"github.com/ignite/adaptive-core/internal/domain"
)

// Budget bucket lower bounds. Each bound is inclusive for its own bucket.
const (
	budgetMediumFloor   = 1000.0
	budgetHighFloor     = 5000.0
	budgetVeryHighFloor = 20000.0
)

// Sample-size floors for confidence grades.
const (
	mediumConfidenceSamples = 50
	highConfidenceSamples   = 200
)

// CategorizeBudget maps any amount to a budget level. Zero, negative and NaN
// amounts are low.
func CategorizeBudget(amount float64) domain.BudgetLevel {
	switch {
	case math.IsNaN(amount) || amount < budgetMediumFloor:
		return domain.BudgetLow
	case amount < budgetHighFloor:
		return domain.BudgetMedium
	case amount < budgetVeryHighFloor:
		return domain.BudgetHigh
	default:
		return domain.BudgetVeryHigh
	}
}

// DetermineConfidenceLevel grades a sample size. It is a pure step function.
func DetermineConfidenceLevel(sampleSize int) domain.ConfidenceLevel {
	switch {
	case sampleSize < mediumConfidenceSamples:
		return domain.ConfidenceLow
	case sampleSize < highConfidenceSamples:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceHigh
	}
}

// DemographicsSimilarity is the overlap of two label sets: the number of
// shared distinct labels over the size of the larger set, so {a,b} and {a,c}
// score 0.5. Labels are compared case-sensitively: "Millennial" and
// "millennial" are different segments. An empty side yields 0.
func DemographicsSimilarity(a, b []string) float64 {
	setA := distinct(a)
	setB := distinct(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	shared := 0
	for label := range setA {
		if _, ok := setB[label]; ok {
			shared++
		}
	}
	larger := len(setA)
	if len(setB) > larger {
		larger = len(setB)
	}
	return float64(shared) / float64(larger)
}

func distinct(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// SignificanceScore grows with the size of the improvement and saturates at 1.
func SignificanceScore(performanceChange float64) float64 {
	if math.IsNaN(performanceChange) {
		return 0
	}
	return clamp(performanceChange/100, 0, 1)
}
