package domain

// BudgetLevel is the discretised campaign budget.
type BudgetLevel string

const (
	BudgetLow      BudgetLevel = "low"
	BudgetMedium   BudgetLevel = "medium"
	BudgetHigh     BudgetLevel = "high"
	BudgetVeryHigh BudgetLevel = "very_high"
)

// Feature keys understood by prediction models. Any other key is ignored.
const (
	FeatureVisualStyle   = "visual_style"
	FeatureContentType   = "content_type"
	FeatureCaptionLength = "caption_length"
	FeatureHashtagCount  = "hashtag_count"
	FeatureAgeGroup      = "age_group"
	FeaturePlatform      = "platform"
	FeatureObjective     = "objective"
	FeatureBudgetLevel   = "budget_level"
)

// FeatureKeys is the fixed feature set, in encoding order.
var FeatureKeys = []string{
	FeatureVisualStyle,
	FeatureContentType,
	FeatureCaptionLength,
	FeatureHashtagCount,
	FeatureAgeGroup,
	FeaturePlatform,
	FeatureObjective,
	FeatureBudgetLevel,
}

// FeatureVector is the normalised view of a campaign used for modeling.
// Nil string fields mean the value was missing or malformed.
type FeatureVector struct {
	VisualStyle   *string     `json:"visual_style"`
	ContentType   *string     `json:"content_type"`
	CaptionLength int         `json:"caption_length"`
	HashtagCount  int         `json:"hashtag_count"`
	AgeGroup      *string     `json:"age_group"`
	Platform      *string     `json:"platform"`
	Objective     *string     `json:"objective"`
	BudgetLevel   BudgetLevel `json:"budget_level"`
}

// FeatureSet maps feature keys to encoded categorical values. An empty value
// means "no information" and never contributes to a prediction.
type FeatureSet map[string]string

// Set converts the vector into the categorical form consumed by prediction
// models. Numeric features are bucketed so they can be learned per bucket.
func (f FeatureVector) Set() FeatureSet {
	fs := FeatureSet{
		FeatureCaptionLength: captionBucket(f.CaptionLength),
		FeatureHashtagCount:  hashtagBucket(f.HashtagCount),
		FeatureBudgetLevel:   string(f.BudgetLevel),
	}
	put := func(k string, v *string) {
		if v != nil && *v != "" {
			fs[k] = *v
		}
	}
	put(FeatureVisualStyle, f.VisualStyle)
	put(FeatureContentType, f.ContentType)
	put(FeatureAgeGroup, f.AgeGroup)
	put(FeaturePlatform, f.Platform)
	put(FeatureObjective, f.Objective)
	return fs
}

func captionBucket(n int) string {
	switch {
	case n <= 0:
		return "none"
	case n < 50:
		return "short"
	case n < 150:
		return "medium"
	default:
		return "long"
	}
}

func hashtagBucket(n int) string {
	switch {
	case n <= 0:
		return "none"
	case n <= 5:
		return "few"
	default:
		return "many"
	}
}
