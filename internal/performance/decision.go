package performance

import (
	"fmt"
	"sort"

	"github.com/ignite/adaptive-core/internal/domain"
)

// Rule thresholds for GenerateActions.
const (
	lowCTRRatio         = 0.8
	highCPCRatio        = 1.3
	minConversionRate   = 5.0
	minROIBeforeRealloc = 150.0
)

// GenerateActions derives remediations from a graded campaign, highest
// priority first. Rules are evaluated independently and any subset may fire.
// A pending grade has no data to act on and yields no actions.
func GenerateActions(m domain.PerformanceMetrics) []domain.OptimizationAction {
	if m.PerformanceStatus == domain.StatusPending {
		return nil
	}

	var actions []domain.OptimizationAction
	if m.CTR < lowCTRRatio*m.IndustryBenchmarkCTR {
		actions = append(actions, domain.OptimizationAction{
			ActionType:      domain.ActionCreativeRefresh,
			Description:     fmt.Sprintf("CTR %.2f%% is below 80%% of the %.2f%% industry benchmark; refresh creative and caption.", m.CTR, m.IndustryBenchmarkCTR),
			Priority:        5,
			EstimatedImpact: "+20-40% CTR",
		})
	}
	if m.IndustryBenchmarkCPC > 0 && m.CPC > highCPCRatio*m.IndustryBenchmarkCPC {
		actions = append(actions, domain.OptimizationAction{
			ActionType:      domain.ActionAudienceAdjust,
			Description:     fmt.Sprintf("CPC $%.2f exceeds 130%% of the $%.2f benchmark; narrow targeting to higher-intent segments.", m.CPC, m.IndustryBenchmarkCPC),
			Priority:        4,
			EstimatedImpact: "-15-25% CPC",
		})
	}
	if m.ConversionRate < minConversionRate {
		actions = append(actions, domain.OptimizationAction{
			ActionType:      domain.ActionLandingPageOptimize,
			Description:     fmt.Sprintf("Conversion rate %.2f%% is below 5%%; review landing page speed, offer and call to action.", m.ConversionRate),
			Priority:        3,
			EstimatedImpact: "+10-30% conversion rate",
		})
	}
	if m.ROI < minROIBeforeRealloc {
		actions = append(actions, domain.OptimizationAction{
			ActionType:      domain.ActionBudgetRealloc,
			Description:     fmt.Sprintf("ROI %.1f%% is below 150%%; shift budget toward the best performing platforms and placements.", m.ROI),
			Priority:        4,
			EstimatedImpact: "+25-50% ROI",
		})
	}

	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].Priority > actions[j].Priority
	})
	return actions
}

// SplitActions separates auto-executable actions from those needing review.
func SplitActions(actions []domain.OptimizationAction) (auto, manual []domain.OptimizationAction) {
	for _, a := range actions {
		if a.AutoExecutable() {
			auto = append(auto, a)
		} else {
			manual = append(manual, a)
		}
	}
	return auto, manual
}
