package learning

import (
	"unicode/utf8"

	"github.com/ignite/adaptive-core/internal/domain"
)

// ExtractFeatures normalises a loosely typed campaign map into a feature
// vector. It never fails: missing or malformed fields resolve to nil or zero.
func ExtractFeatures(campaign map[string]interface{}) domain.FeatureVector {
	fv := domain.FeatureVector{
		ContentType: stringPtr(campaign["content_type"]),
		VisualStyle: stringPtr(campaign["visual_style"]),
		Objective:   stringPtr(campaign["objective"]),
		Platform:    stringPtr(campaign["platform"]),
	}

	// A record carries a platform set; the first entry is the primary one.
	if fv.Platform == nil {
		if items, ok := sequence(campaign["platforms"]); ok && len(items) > 0 {
			fv.Platform = stringPtr(items[0])
		}
	}

	if items, ok := sequence(campaign["demographics"]); ok && len(items) > 0 {
		fv.AgeGroup = stringPtr(items[0])
	}

	if caption, ok := campaign["caption"].(string); ok {
		fv.CaptionLength = utf8.RuneCountInString(caption)
	}

	if tags, ok := sequence(campaign["hashtags"]); ok {
		fv.HashtagCount = len(tags)
	}

	budget, ok := toFloat(campaign["budget"])
	if !ok {
		budget = 0
	}
	fv.BudgetLevel = CategorizeBudget(budget)
	return fv
}

// FeaturesFromRecord builds the feature vector for a typed campaign record.
func FeaturesFromRecord(rec domain.CampaignRecord) domain.FeatureVector {
	return ExtractFeatures(RecordToMap(rec))
}

// RecordToMap renders a record in the loosely typed shape accepted by the
// analysis entry points. Empty strings are omitted so they read as missing.
func RecordToMap(rec domain.CampaignRecord) map[string]interface{} {
	m := map[string]interface{}{
		"id":              rec.ID,
		"user_id":         rec.UserID,
		"budget":          rec.Budget,
		"roi":             rec.ROI,
		"ctr":             rec.CTR,
		"conversion_rate": rec.ConversionRate,
		"engagement_rate": rec.EngagementRate,
		"platforms":       append([]string(nil), rec.Platforms...),
		"demographics":    append([]string(nil), rec.Demographics...),
		"hashtags":        append([]string(nil), rec.Hashtags...),
	}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	put("content_type", rec.ContentType)
	put("visual_style", rec.VisualStyle)
	put("objective", rec.Objective)
	put("caption", rec.Caption)
	put("industry", rec.Industry)
	return m
}
