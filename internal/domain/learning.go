package domain

import "time"

// LearningType classifies what an insight is about.
type LearningType string

const (
	LearningPerformance LearningType = "performance"
	LearningAudience    LearningType = "audience"
	LearningContent     LearningType = "content"
	LearningPlatform    LearningType = "platform"
)

// LearningTypes lists every learning type in display order.
var LearningTypes = []LearningType{LearningPerformance, LearningAudience, LearningContent, LearningPlatform}

// ConfidenceLevel is a discrete grade derived purely from sample size.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// InsightSource records which generation path produced an insight.
type InsightSource string

const (
	SourceLLM      InsightSource = "llm"
	SourceFallback InsightSource = "fallback"
)

// LearningInsight is one statistically graded observation for a user.
// Insights are never mutated once appended to a profile.
type LearningInsight struct {
	ID                  string                 `json:"insight_id"`
	UserID              string                 `json:"user_id"`
	CampaignID          string                 `json:"campaign_id,omitempty"`
	LearningType        LearningType           `json:"learning_type"`
	MetricType          string                 `json:"metric_type"`
	Title               string                 `json:"insight_title"`
	Description         string                 `json:"insight_description"`
	SupportingData      map[string]interface{} `json:"supporting_data"`
	ConfidenceLevel     ConfidenceLevel        `json:"confidence_level"`
	SignificanceScore   float64                `json:"significance_score"`
	SampleSize          int                    `json:"sample_size"`
	RecommendedActions  []string               `json:"recommended_actions"`
	EstimatedMetricLift float64                `json:"estimated_metric_lift"`
	Source              InsightSource          `json:"source"`
	CreatedAt           time.Time              `json:"created_at"`
}

// LiftKey is the supporting-data key carrying the lift for a metric,
// e.g. "estimated_roi_lift".
func LiftKey(metric string) string { return "estimated_" + metric + "_lift" }

// LiftFor returns the estimated lift recorded for the given metric.
func (i LearningInsight) LiftFor(metric string) (float64, bool) {
	if i.MetricType == metric {
		return i.EstimatedMetricLift, true
	}
	if v, ok := i.SupportingData[LiftKey(metric)].(float64); ok {
		return v, true
	}
	return 0, false
}

// UserLearningProfile is the per-user accumulated learning state.
type UserLearningProfile struct {
	UserID                 string                             `json:"user_id"`
	TotalCampaignsAnalyzed int                                `json:"total_campaigns_analyzed"`
	LearningConfidence     float64                            `json:"learning_confidence"`
	Insights               map[LearningType][]LearningInsight `json:"insights"`
	CreatedAt              time.Time                          `json:"created_at"`
	UpdatedAt              time.Time                          `json:"updated_at"`
}

// NewUserLearningProfile returns an empty profile for a first-time user.
func NewUserLearningProfile(userID string, now time.Time) *UserLearningProfile {
	return &UserLearningProfile{
		UserID:    userID,
		Insights:  make(map[LearningType][]LearningInsight),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AllInsights returns every insight, grouped by learning type in display
// order and in discovery order within a type.
func (p *UserLearningProfile) AllInsights() []LearningInsight {
	if p == nil {
		return nil
	}
	var out []LearningInsight
	for _, t := range LearningTypes {
		out = append(out, p.Insights[t]...)
	}
	return out
}

// InsightCount returns the number of insights across all types.
func (p *UserLearningProfile) InsightCount() int {
	n := 0
	for _, list := range p.Insights {
		n += len(list)
	}
	return n
}

// Clone returns a deep copy so callers can mutate without affecting a store.
func (p *UserLearningProfile) Clone() *UserLearningProfile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Insights = make(map[LearningType][]LearningInsight, len(p.Insights))
	for t, list := range p.Insights {
		cp.Insights[t] = append([]LearningInsight(nil), list...)
	}
	return &cp
}

// PredictionModel is a per-user, per-metric weighted scorer.
type PredictionModel struct {
	ModelID            string             `json:"model_id" dynamodbav:"model_id"`
	UserID             string             `json:"user_id" dynamodbav:"user_id"`
	ModelType          string             `json:"model_type" dynamodbav:"model_type"`
	FeatureWeights     map[string]float64 `json:"feature_weights" dynamodbav:"feature_weights"`
	ValueEffects       map[string]float64 `json:"value_effects" dynamodbav:"value_effects"`
	BaselineMetrics    map[string]float64 `json:"baseline_metrics" dynamodbav:"baseline_metrics"`
	AccuracyScore      float64            `json:"accuracy_score" dynamodbav:"accuracy_score"`
	TrainingSampleSize int                `json:"training_sample_size" dynamodbav:"training_sample_size"`
	UpdatedAt          time.Time          `json:"updated_at" dynamodbav:"updated_at"`
}

// Clone returns a deep copy of the model.
func (m *PredictionModel) Clone() *PredictionModel {
	if m == nil {
		return nil
	}
	cp := *m
	cp.FeatureWeights = cloneFloats(m.FeatureWeights)
	cp.ValueEffects = cloneFloats(m.ValueEffects)
	cp.BaselineMetrics = cloneFloats(m.BaselineMetrics)
	return &cp
}

func cloneFloats(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
