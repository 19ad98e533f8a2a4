package learning

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adaptive-core/internal/domain"
)

func TestExtractFeaturesEmptyCampaign(t *testing.T) {
	fv := ExtractFeatures(map[string]interface{}{})

	assert.Nil(t, fv.ContentType)
	assert.Nil(t, fv.VisualStyle)
	assert.Nil(t, fv.Platform)
	assert.Nil(t, fv.Objective)
	assert.Nil(t, fv.AgeGroup)
	assert.Equal(t, 0, fv.CaptionLength)
	assert.Equal(t, 0, fv.HashtagCount)
	assert.Equal(t, domain.BudgetLow, fv.BudgetLevel)
}

func TestExtractFeaturesNilMap(t *testing.T) {
	assert.NotPanics(t, func() {
		fv := ExtractFeatures(nil)
		assert.Equal(t, domain.BudgetLow, fv.BudgetLevel)
	})
}

func TestExtractFeaturesFullCampaign(t *testing.T) {
	fv := ExtractFeatures(map[string]interface{}{
		"content_type": "video",
		"visual_style": "minimal",
		"platforms":    []interface{}{"instagram", "tiktok"},
		"demographics": []string{"18-24", "25-34"},
		"objective":    "conversions",
		"caption":      "Summer sale!",
		"hashtags":     []interface{}{"#sale", "#summer"},
		"budget":       7500,
	})

	require.NotNil(t, fv.ContentType)
	assert.Equal(t, "video", *fv.ContentType)
	assert.Equal(t, "minimal", *fv.VisualStyle)
	assert.Equal(t, "instagram", *fv.Platform)
	assert.Equal(t, "18-24", *fv.AgeGroup)
	assert.Equal(t, "conversions", *fv.Objective)
	assert.Equal(t, 12, fv.CaptionLength)
	assert.Equal(t, 2, fv.HashtagCount)
	assert.Equal(t, domain.BudgetHigh, fv.BudgetLevel)
}

func TestExtractFeaturesMalformedFields(t *testing.T) {
	fv := ExtractFeatures(map[string]interface{}{
		"content_type": 42,
		"platform":     []string{"instagram"},
		"demographics": "18-24",
		"caption":      12345,
		"hashtags":     "#one #two",
		"budget":       "not a number",
	})

	assert.Nil(t, fv.ContentType)
	assert.Nil(t, fv.Platform)
	assert.Nil(t, fv.AgeGroup)
	assert.Equal(t, 0, fv.CaptionLength)
	assert.Equal(t, 0, fv.HashtagCount)
	assert.Equal(t, domain.BudgetLow, fv.BudgetLevel)
}

func TestExtractFeaturesEmptyDemographics(t *testing.T) {
	fv := ExtractFeatures(map[string]interface{}{"demographics": []interface{}{}})
	assert.Nil(t, fv.AgeGroup)
}

func TestExtractFeaturesCoercesBudget(t *testing.T) {
	assert.Equal(t, domain.BudgetVeryHigh, ExtractFeatures(map[string]interface{}{"budget": "20000"}).BudgetLevel)
	assert.Equal(t, domain.BudgetMedium, ExtractFeatures(map[string]interface{}{"budget": json.Number("1000")}).BudgetLevel)
	assert.Equal(t, domain.BudgetLow, ExtractFeatures(map[string]interface{}{"budget": -100.0}).BudgetLevel)
}

func TestFeaturesFromRecord(t *testing.T) {
	fv := FeaturesFromRecord(domain.CampaignRecord{
		ContentType:  "carousel",
		Platforms:    []string{"facebook"},
		Demographics: []string{"Millennial"},
		Budget:       1200,
	})
	require.NotNil(t, fv.Platform)
	assert.Equal(t, "facebook", *fv.Platform)
	assert.Equal(t, "Millennial", *fv.AgeGroup)
	assert.Nil(t, fv.VisualStyle)
	assert.Equal(t, domain.BudgetMedium, fv.BudgetLevel)

	set := fv.Set()
	assert.Equal(t, "carousel", set[domain.FeatureContentType])
	assert.Equal(t, "none", set[domain.FeatureCaptionLength])
	_, hasStyle := set[domain.FeatureVisualStyle]
	assert.False(t, hasStyle)
}
