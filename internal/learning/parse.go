package learning

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StructuredInsight is the JSON object the text generator is asked for.
type StructuredInsight struct {
	Title                string   `json:"insight_title"`
	Description          string   `json:"insight_description"`
	KeyFactors           []string `json:"key_factors"`
	RecommendedActions   []string `json:"recommended_actions"`
	ConfidenceAssessment string   `json:"confidence_assessment"`
	ExpectedImpact       string   `json:"expected_impact"`
}

type rawInsight struct {
	Title                string          `json:"insight_title"`
	Description          string          `json:"insight_description"`
	KeyFactors           json.RawMessage `json:"key_factors"`
	RecommendedActions   json.RawMessage `json:"recommended_actions"`
	ConfidenceAssessment json.RawMessage `json:"confidence_assessment"`
	ExpectedImpact       json.RawMessage `json:"expected_impact"`
}

// ParseInsight extracts a StructuredInsight from free text. Code fences and
// prose around a single JSON object are tolerated. Any other shape returns an
// error wrapping ErrMalformedInsight.
func ParseInsight(text string) (StructuredInsight, error) {
	body := strings.TrimSpace(text)
	if body == "" {
		return StructuredInsight{}, fmt.Errorf("%w: empty response", ErrMalformedInsight)
	}

	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return StructuredInsight{}, fmt.Errorf("%w: no JSON object found", ErrMalformedInsight)
	}

	var raw rawInsight
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return StructuredInsight{}, fmt.Errorf("%w: %v", ErrMalformedInsight, err)
	}

	out := StructuredInsight{
		Title:                strings.TrimSpace(raw.Title),
		Description:          strings.TrimSpace(raw.Description),
		KeyFactors:           flexStrings(raw.KeyFactors),
		RecommendedActions:   flexStrings(raw.RecommendedActions),
		ConfidenceAssessment: flexString(raw.ConfidenceAssessment),
		ExpectedImpact:       flexString(raw.ExpectedImpact),
	}
	if out.Title == "" || out.Description == "" {
		return StructuredInsight{}, fmt.Errorf("%w: insight_title and insight_description are required", ErrMalformedInsight)
	}
	return out, nil
}

// flexStrings accepts either a JSON array of scalars or a single string.
func flexStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := flexString(raw); s != "" {
		return []string{s}
	}
	return nil
}

// flexString renders strings as-is and any other JSON value compactly.
func flexString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	if s := scalarString(v); s != "" {
		return s
	}
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func scalarString(v interface{}) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64, bool:
		return fmt.Sprint(x)
	}
	return ""
}
