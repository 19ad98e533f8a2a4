package domain

import "time"

// PerformanceStatus grades a campaign against its industry benchmarks.
type PerformanceStatus string

const (
	StatusExcellent PerformanceStatus = "excellent"
	StatusGood      PerformanceStatus = "good"
	StatusPoor      PerformanceStatus = "poor"
	StatusCritical  PerformanceStatus = "critical"
	// StatusPending means no analytics have been collected yet.
	StatusPending PerformanceStatus = "pending"
)

// PerformanceMetrics is one monitoring snapshot for a campaign.
type PerformanceMetrics struct {
	CampaignID            string            `json:"campaign_id"`
	Industry              string            `json:"industry"`
	CTR                   float64           `json:"ctr"`
	CPC                   float64           `json:"cpc"`
	ConversionRate        float64           `json:"conversion_rate"`
	ROI                   float64           `json:"roi"`
	IndustryBenchmarkCTR  float64           `json:"industry_benchmark_ctr"`
	IndustryBenchmarkCPC  float64           `json:"industry_benchmark_cpc"`
	IndustryBenchmarkConv float64           `json:"industry_benchmark_conversion_rate"`
	PerformanceScore      int               `json:"performance_score"`
	PerformanceStatus     PerformanceStatus `json:"performance_status"`
	NeedsOptimization     bool              `json:"needs_optimization"`
	GuaranteeThresholdMet bool              `json:"guarantee_threshold_met"`
	DataPoints            int               `json:"data_points"`
	CheckedAt             time.Time         `json:"checked_at"`
}

// ActionType enumerates optimization remediations.
type ActionType string

const (
	ActionCreativeRefresh     ActionType = "creative_refresh"
	ActionAudienceAdjust      ActionType = "audience_adjust"
	ActionBudgetRealloc       ActionType = "budget_realloc"
	ActionLandingPageOptimize ActionType = "landing_page_optimize"
)

// AutoExecutePriority is the minimum priority executed without manual review.
const AutoExecutePriority = 4

// OptimizationAction is one recommended remediation.
type OptimizationAction struct {
	ActionType      ActionType `json:"action_type"`
	Description     string     `json:"description"`
	Priority        int        `json:"priority"`
	EstimatedImpact string     `json:"estimated_impact"`
}

// AutoExecutable reports whether the action runs without manual review.
func (a OptimizationAction) AutoExecutable() bool { return a.Priority >= AutoExecutePriority }

// ActionStatus is the outcome of executing one action.
type ActionStatus string

const (
	ActionSucceeded ActionStatus = "succeeded"
	ActionFailed    ActionStatus = "failed"
)

// ActionOutcome records the execution result of a single action.
type ActionOutcome struct {
	Action  OptimizationAction     `json:"action"`
	Status  ActionStatus           `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
