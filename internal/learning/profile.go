package learning

import (
	"encoding/json"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
)

// ConfidenceParams tunes CalculateLearningConfidence.
type ConfidenceParams struct {
	// SampleWeightCap bounds the weight any single insight can carry.
	SampleWeightCap int
	// MaturityCampaigns is the number of analyzed campaigns at which the
	// profile may reach full confidence.
	MaturityCampaigns int
}

// DefaultConfidenceParams returns the production tuning.
func DefaultConfidenceParams() ConfidenceParams {
	return ConfidenceParams{SampleWeightCap: 100, MaturityCampaigns: 20}
}

// CalculateLearningConfidence returns the sample-weighted mean significance of
// the profile's insights scaled by profile maturity. An empty profile is
// exactly 0 and the result is always within [0,1].
func CalculateLearningConfidence(p *domain.UserLearningProfile, params ConfidenceParams) float64 {
	if p == nil {
		return 0
	}
	insights := p.AllInsights()
	if len(insights) == 0 {
		return 0
	}

	scores := make([]float64, 0, len(insights))
	weights := make([]float64, 0, len(insights))
	totalWeight := 0.0
	for _, in := range insights {
		w := float64(in.SampleSize)
		if params.SampleWeightCap > 0 && w > float64(params.SampleWeightCap) {
			w = float64(params.SampleWeightCap)
		}
		if w < 0 {
			w = 0
		}
		scores = append(scores, clamp(in.SignificanceScore, 0, 1))
		weights = append(weights, w)
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}

	mean := stat.Mean(scores, weights)
	return clamp(mean*maturity(p.TotalCampaignsAnalyzed, params.MaturityCampaigns), 0, 1)
}

func maturity(analyzed, full int) float64 {
	if full <= 0 {
		return 1
	}
	if analyzed <= 0 {
		return 0
	}
	return clamp(float64(analyzed)/float64(full), 0, 1)
}

// EncodeProfile serialises a profile for a store backend.
func EncodeProfile(p *domain.UserLearningProfile) ([]byte, error) {
	return json.Marshal(p)
}

// DecodeProfile parses stored profile bytes with best-effort recovery:
// unreadable fields become their zero value, unreadable insights are dropped
// and confidence grades are re-derived from sample sizes. Only a payload that
// is not a JSON object at all yields a *StateError.
func DecodeProfile(userID string, data []byte) (*domain.UserLearningProfile, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, corrupted(userID, "profile", err)
	}
	if raw == nil {
		return nil, corrupted(userID, "profile", nil)
	}

	p := domain.NewUserLearningProfile(userID, time.Time{})
	var recovered []string

	if v, ok := raw["user_id"].(string); ok && v != "" {
		p.UserID = v
	}

	if v, present := raw["total_campaigns_analyzed"]; present {
		n, ok := toInt(v)
		if !ok || n < 0 {
			recovered = append(recovered, "total_campaigns_analyzed")
			n = 0
		}
		p.TotalCampaignsAnalyzed = n
	}

	if v, present := raw["learning_confidence"]; present {
		f, ok := toFloat(v)
		if !ok {
			recovered = append(recovered, "learning_confidence")
		}
		p.LearningConfidence = clamp(f, 0, 1)
	}

	p.CreatedAt = parseTime(raw["created_at"])
	p.UpdatedAt = parseTime(raw["updated_at"])

	dropped := 0
	switch groups := raw["insights"].(type) {
	case map[string]interface{}:
		for key, list := range groups {
			items, ok := sequence(list)
			if !ok {
				dropped++
				continue
			}
			for _, item := range items {
				if in, ok := decodeInsight(item, domain.LearningType(key)); ok {
					p.Insights[in.LearningType] = append(p.Insights[in.LearningType], in)
				} else {
					dropped++
				}
			}
		}
	case []interface{}:
		// Flat list layout written by older profile versions.
		for _, item := range groups {
			if in, ok := decodeInsight(item, domain.LearningPerformance); ok {
				p.Insights[in.LearningType] = append(p.Insights[in.LearningType], in)
			} else {
				dropped++
			}
		}
	case nil:
	default:
		recovered = append(recovered, "insights")
	}

	if len(recovered) > 0 || dropped > 0 {
		logger.Warn("recovered corrupted learning profile",
			"user_id", userID, "fields", recovered, "dropped_insights", dropped)
	}
	return p, nil
}

func decodeInsight(item interface{}, group domain.LearningType) (domain.LearningInsight, bool) {
	obj, ok := item.(map[string]interface{})
	if !ok {
		return domain.LearningInsight{}, false
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return domain.LearningInsight{}, false
	}

	var in domain.LearningInsight
	if err := json.Unmarshal(b, &in); err != nil {
		// Typed decode failed; salvage the fields that drive confidence.
		in = domain.LearningInsight{}
		in.ID, _ = obj["insight_id"].(string)
		in.Title, _ = obj["insight_title"].(string)
		in.Description, _ = obj["insight_description"].(string)
		in.SampleSize, _ = toInt(obj["sample_size"])
		sig, _ := toFloat(obj["significance_score"])
		in.SignificanceScore = sig
		lt, _ := obj["learning_type"].(string)
		in.LearningType = domain.LearningType(lt)
		if in.ID == "" && in.Title == "" {
			return domain.LearningInsight{}, false
		}
	}

	if in.LearningType == "" {
		in.LearningType = group
	}
	if in.SampleSize < 0 {
		in.SampleSize = 0
	}
	in.SignificanceScore = clamp(in.SignificanceScore, 0, 1)
	in.ConfidenceLevel = DetermineConfidenceLevel(in.SampleSize)
	return in, true
}

func parseTime(v interface{}) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
