package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/osteele/liquid"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

// TextGenerator is the external natural-language collaborator. Its output is
// untrusted free text and the call may fail for any reason.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationState tracks an insight through draft → llm_requested →
// parsed|fallback → finalized.
type GenerationState string

const (
	StateDraft        GenerationState = "draft"
	StateLLMRequested GenerationState = "llm_requested"
	StateParsed       GenerationState = "parsed"
	StateFallback     GenerationState = "fallback"
	StateFinalized    GenerationState = "finalized"
)

// Fallback reasons, also used as metric labels.
const (
	reasonNoGenerator = "generator_unavailable"
	reasonTimeout     = "timeout"
	reasonCallFailed  = "generator_error"
	reasonMalformed   = "malformed_response"
	reasonPrompt      = "prompt_render"
)

// DefaultGeneratorTimeout bounds a single text generation call.
const DefaultGeneratorTimeout = 20 * time.Second

// InsightRequest describes one material performance delta.
type InsightRequest struct {
	UserID            string
	CampaignID        string
	MetricType        string
	PerformanceChange float64
	HistoricalAverage float64
	Features          domain.FeatureVector
	Historical        []domain.CampaignRecord
}

// InsightGenerator builds LearningInsights, preferring the text generator and
// falling back to a deterministic insight on any failure.
type InsightGenerator struct {
	generator TextGenerator
	prompt    *liquid.Template
	timeout   time.Duration
	metrics   *telemetry.Metrics
	now       func() time.Time
}

const promptTemplate = `You are a marketing performance analyst.
A campaign for user {{ user_id }} improved its {{ metric_label }} by {{ change }} compared with the user's historical average of {{ historical_average }} across {{ history_count }} previous campaigns.

Campaign configuration:
- Content type: {{ content_type | default: "unknown" }}
- Visual style: {{ visual_style | default: "unknown" }}
- Platform: {{ platform | default: "unknown" }}
- Audience: {{ age_group | default: "unknown" }}
- Objective: {{ objective | default: "unknown" }}
- Budget level: {{ budget_level }}
- Caption length: {{ caption_length }} characters, {{ hashtag_count }} hashtags
{% if history_count > 0 %}
Recent historical {{ metric_label }} values: {{ history_values | join: ", " }}
{% endif %}
Respond with a single JSON object and nothing else, using exactly these fields:
"insight_title" (string), "insight_description" (string), "key_factors" (array of strings),
"recommended_actions" (array of strings), "confidence_assessment" (string), "expected_impact" (string).`

// NewInsightGenerator creates a generator. gen may be nil, in which case every
// insight takes the fallback path.
func NewInsightGenerator(gen TextGenerator, timeout time.Duration, metrics *telemetry.Metrics) (*InsightGenerator, error) {
	tpl, err := liquid.NewEngine().ParseString(promptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse insight prompt: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultGeneratorTimeout
	}
	return &InsightGenerator{
		generator: gen,
		prompt:    tpl,
		timeout:   timeout,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// Generate always returns an insight. Generator failures and unparseable
// responses are logged and replaced by the fallback insight.
func (g *InsightGenerator) Generate(ctx context.Context, req InsightRequest) domain.LearningInsight {
	state := StateDraft
	insight := g.draft(req)

	parsed, reason := g.request(ctx, req, &state)
	if reason == "" {
		state = g.advance(req, state, StateParsed)
		g.applyParsed(&insight, parsed, req)
	} else {
		state = g.advance(req, state, StateFallback)
		g.metrics.InsightFallback(reason)
		insight.SupportingData["fallback_reason"] = reason
		g.applyFallback(&insight, req)
	}

	g.advance(req, state, StateFinalized)
	g.metrics.InsightGenerated(string(insight.Source), req.MetricType)
	return insight
}

// request runs the text generator and returns the parsed insight, or the
// reason the fallback must be used.
func (g *InsightGenerator) request(ctx context.Context, req InsightRequest, state *GenerationState) (StructuredInsight, string) {
	if g.generator == nil {
		return StructuredInsight{}, reasonNoGenerator
	}

	prompt, err := g.renderPrompt(req)
	if err != nil {
		logger.Warn("insight prompt render failed", "user_id", req.UserID, "metric", req.MetricType, "error", err)
		return StructuredInsight{}, reasonPrompt
	}

	*state = g.advance(req, *state, StateLLMRequested)
	text, err := g.call(ctx, prompt)
	if err != nil {
		reason := reasonCallFailed
		if errors.Is(err, context.DeadlineExceeded) {
			reason = reasonTimeout
		}
		logger.Warn("insight generator call failed, using fallback",
			"user_id", req.UserID, "metric", req.MetricType, "reason", reason, "error", err)
		return StructuredInsight{}, reason
	}

	parsed, err := ParseInsight(text)
	if err != nil {
		logger.Warn("insight generator returned unparseable response, using fallback",
			"user_id", req.UserID, "metric", req.MetricType, "reason", reasonMalformed, "error", err)
		return StructuredInsight{}, reasonMalformed
	}
	return parsed, ""
}

// call bounds the generator with the configured timeout even if the
// implementation ignores its context.
func (g *InsightGenerator) call(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		text, err := g.generator.Generate(ctx, prompt)
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		g.metrics.ObserveGenerator(time.Since(start))
		return r.text, r.err
	case <-ctx.Done():
		g.metrics.ObserveGenerator(time.Since(start))
		return "", ctx.Err()
	}
}

func (g *InsightGenerator) advance(req InsightRequest, from, to GenerationState) GenerationState {
	logger.Debug("insight state", "user_id", req.UserID, "metric", req.MetricType, "from", string(from), "to", string(to))
	return to
}

func (g *InsightGenerator) renderPrompt(req InsightRequest) (string, error) {
	values := make([]string, 0, len(req.Historical))
	for i, rec := range req.Historical {
		if i == 10 {
			break
		}
		if v, ok := rec.Metric(req.MetricType); ok {
			values = append(values, fmt.Sprintf("%.2f", v))
		}
	}
	bindings := map[string]interface{}{
		"user_id":            req.UserID,
		"metric_label":       MetricLabel(req.MetricType),
		"change":             fmt.Sprintf("%.1f", req.PerformanceChange),
		"historical_average": fmt.Sprintf("%.2f", req.HistoricalAverage),
		"history_count":      len(req.Historical),
		"history_values":     values,
		"budget_level":       string(req.Features.BudgetLevel),
		"caption_length":     req.Features.CaptionLength,
		"hashtag_count":      req.Features.HashtagCount,
		"content_type":       deref(req.Features.ContentType),
		"visual_style":       deref(req.Features.VisualStyle),
		"platform":           deref(req.Features.Platform),
		"age_group":          deref(req.Features.AgeGroup),
		"objective":          deref(req.Features.Objective),
	}
	out, err := g.prompt.RenderString(bindings)
	if err != nil {
		return "", err
	}
	return out, nil
}

// draft fills every field that does not depend on the generation path.
// Confidence is always derived from the sample size.
func (g *InsightGenerator) draft(req InsightRequest) domain.LearningInsight {
	sampleSize := len(req.Historical)
	insight := domain.LearningInsight{
		ID:                  uuid.New().String(),
		UserID:              req.UserID,
		CampaignID:          req.CampaignID,
		LearningType:        LearningTypeFor(req.MetricType),
		MetricType:          req.MetricType,
		ConfidenceLevel:     DetermineConfidenceLevel(sampleSize),
		SignificanceScore:   SignificanceScore(req.PerformanceChange),
		SampleSize:          sampleSize,
		EstimatedMetricLift: req.PerformanceChange,
		SupportingData: map[string]interface{}{
			"metric":               req.MetricType,
			"performance_change":   req.PerformanceChange,
			"historical_average":   req.HistoricalAverage,
			"historical_campaigns": sampleSize,
			"budget_level":         string(req.Features.BudgetLevel),
		},
		CreatedAt: g.now().UTC(),
	}
	insight.SupportingData[domain.LiftKey(req.MetricType)] = req.PerformanceChange
	return insight
}

func (g *InsightGenerator) applyParsed(insight *domain.LearningInsight, parsed StructuredInsight, req InsightRequest) {
	insight.Source = domain.SourceLLM
	insight.Title = parsed.Title
	insight.Description = parsed.Description
	insight.RecommendedActions = parsed.RecommendedActions
	if len(insight.RecommendedActions) == 0 {
		insight.RecommendedActions = fallbackActions(req)
	}
	if len(parsed.KeyFactors) > 0 {
		insight.SupportingData["key_factors"] = parsed.KeyFactors
	}
	if parsed.ConfidenceAssessment != "" {
		insight.SupportingData["confidence_assessment"] = parsed.ConfidenceAssessment
	}
	if parsed.ExpectedImpact != "" {
		insight.SupportingData["expected_impact"] = parsed.ExpectedImpact
	}
}

func (g *InsightGenerator) applyFallback(insight *domain.LearningInsight, req InsightRequest) {
	label := MetricLabel(req.MetricType)
	insight.Source = domain.SourceFallback
	insight.Title = label + " Improvement Pattern"
	if len(req.Historical) == 0 {
		insight.Description = fmt.Sprintf("%s reached %.1f on this campaign, the first outcome recorded for this account.",
			label, req.PerformanceChange)
	} else {
		insight.Description = fmt.Sprintf("%s improved by %.1f over the average of %d previous campaigns (%.2f).",
			label, req.PerformanceChange, len(req.Historical), req.HistoricalAverage)
	}
	insight.RecommendedActions = fallbackActions(req)
}

func fallbackActions(req InsightRequest) []string {
	f := req.Features
	var actions []string
	if f.ContentType != nil && *f.ContentType != "" {
		actions = append(actions, fmt.Sprintf("Reuse the %s content format in upcoming campaigns", *f.ContentType))
	}
	if f.Platform != nil && *f.Platform != "" {
		actions = append(actions, fmt.Sprintf("Prioritize %s for campaigns with the same objective", *f.Platform))
	}
	if f.AgeGroup != nil && *f.AgeGroup != "" {
		actions = append(actions, fmt.Sprintf("Keep targeting the %s audience segment", *f.AgeGroup))
	}
	actions = append(actions, fmt.Sprintf("Scale budget gradually while tracking %s", MetricLabel(req.MetricType)))
	return actions
}

// LearningTypeFor maps a metric to the kind of learning it represents.
func LearningTypeFor(metric string) domain.LearningType {
	switch metric {
	case domain.MetricCTR:
		return domain.LearningContent
	case domain.MetricEngagementRate:
		return domain.LearningAudience
	default:
		return domain.LearningPerformance
	}
}

// MetricLabel renders a metric name in title case for display, so "roi"
// becomes "Roi" and "conversion_rate" becomes "Conversion Rate".
func MetricLabel(metric string) string {
	words := strings.FieldsFunc(metric, func(r rune) bool { return r == '_' || r == ' ' || r == '-' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	if len(words) == 0 {
		return "Performance"
	}
	return strings.Join(words, " ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
