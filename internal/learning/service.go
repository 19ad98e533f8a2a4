package learning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/keylock"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

// CampaignHistory is the read side of the campaign repository the learning
// engine depends on.
type CampaignHistory interface {
	GetUserHistoricalCampaigns(ctx context.Context, userID string) ([]domain.CampaignRecord, error)
}

// Config tunes the learning engine.
type Config struct {
	// MaterialityThresholds is the minimum improvement per metric that
	// produces an insight.
	MaterialityThresholds map[string]float64
	Confidence            ConfidenceParams
	EMAAlpha              float64
	BaselinePrediction    float64
}

// DefaultConfig returns the production tuning.
func DefaultConfig() Config {
	return Config{
		MaterialityThresholds: map[string]float64{
			domain.MetricROI:            10,
			domain.MetricCTR:            0.5,
			domain.MetricConversionRate: 1,
			domain.MetricEngagementRate: 1,
		},
		Confidence:         DefaultConfidenceParams(),
		EMAAlpha:           DefaultAlpha,
		BaselinePrediction: DefaultBaseline,
	}
}

// Deps are the collaborators injected into a Service.
type Deps struct {
	Campaigns CampaignHistory
	Profiles  ProfileStore
	Models    ModelStore
	Locks     Locker
	Insights  *InsightGenerator
	Metrics   *telemetry.Metrics
}

// Service implements campaign analysis and predictive insights. All methods
// are safe for concurrent use. Calls for the same user are serialised through
// the injected Locker; calls for different users never contend.
type Service struct {
	cfg       Config
	campaigns CampaignHistory
	profiles  ProfileStore
	models    ModelStore
	locks     Locker
	insights  *InsightGenerator
	metrics   *telemetry.Metrics
	now       func() time.Time
}

// NewService creates a learning service.
func NewService(cfg Config, deps Deps) *Service {
	if cfg.MaterialityThresholds == nil {
		cfg.MaterialityThresholds = DefaultConfig().MaterialityThresholds
	}
	if cfg.BaselinePrediction == 0 {
		cfg.BaselinePrediction = DefaultBaseline
	}
	if deps.Profiles == nil {
		deps.Profiles = NewMemoryProfileStore()
	}
	if deps.Models == nil {
		deps.Models = NewMemoryModelStore()
	}
	if deps.Locks == nil {
		deps.Locks = keylock.New()
	}
	if deps.Insights == nil {
		// The built-in prompt always parses; a nil generator means fallback only.
		deps.Insights, _ = NewInsightGenerator(nil, 0, deps.Metrics)
	}
	return &Service{
		cfg:       cfg,
		campaigns: deps.Campaigns,
		profiles:  deps.Profiles,
		models:    deps.Models,
		locks:     deps.Locks,
		insights:  deps.Insights,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// AnalysisResult is returned by AnalyzeCampaignPerformance.
type AnalysisResult struct {
	UserID                   string                   `json:"user_id"`
	CampaignID               string                   `json:"campaign_id"`
	InsightsExtracted        int                      `json:"insights_extracted"`
	Insights                 []domain.LearningInsight `json:"insights"`
	UpdatedProfileConfidence float64                  `json:"updated_profile_confidence"`
	TotalCampaignsAnalyzed   int                      `json:"total_campaigns_analyzed"`
}

// AnalyzeCampaignPerformance extracts insights from one campaign outcome,
// appends them to the user's profile and nudges the user's prediction models.
// The profile save is the only commit point: a request cancelled before it
// leaves no trace.
func (s *Service) AnalyzeCampaignPerformance(ctx context.Context, userID string, campaign map[string]interface{}) (*AnalysisResult, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	campaignID := campaignIDOf(campaign)
	features := ExtractFeatures(campaign)
	history := s.history(ctx, userID, campaignID)

	// Text generation happens before the user lock is taken so a slow
	// generator never blocks other analyses for the same user.
	var insights []domain.LearningInsight
	observed := make(map[string]float64)
	for _, metric := range domain.TrackedMetrics {
		value, ok := toFloat(campaign[metric])
		if !ok {
			continue
		}
		observed[metric] = value

		avg := historicalMean(history, metric)
		change := value - avg
		threshold, ok := s.cfg.MaterialityThresholds[metric]
		if !ok || change < threshold {
			continue
		}
		insights = append(insights, s.insights.Generate(ctx, InsightRequest{
			UserID:            userID,
			CampaignID:        campaignID,
			MetricType:        metric,
			PerformanceChange: change,
			HistoricalAverage: avg,
			Features:          features,
			Historical:        history,
		}))
	}

	unlock, err := s.locks.Lock(ctx, userID)
	if err != nil {
		s.metrics.Analysis("cancelled")
		return nil, fmt.Errorf("lock profile %s: %w", userID, err)
	}
	defer unlock()

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		s.metrics.Analysis("state_error")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		s.metrics.Analysis("cancelled")
		return nil, err
	}

	for _, in := range insights {
		profile.Insights[in.LearningType] = append(profile.Insights[in.LearningType], in)
	}
	profile.TotalCampaignsAnalyzed++
	profile.LearningConfidence = CalculateLearningConfidence(profile, s.cfg.Confidence)
	profile.UpdatedAt = s.now().UTC()

	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		s.metrics.Analysis("store_error")
		return nil, fmt.Errorf("save profile %s: %w", userID, err)
	}

	// The profile is committed; model updates finish even if the caller goes away.
	s.updateModels(context.WithoutCancel(ctx), userID, features.Set(), observed)

	s.metrics.Analysis("ok")
	logger.Info("campaign analyzed",
		"user_id", userID,
		"campaign_id", campaignID,
		"insights", len(insights),
		"learning_confidence", profile.LearningConfidence)

	if insights == nil {
		insights = []domain.LearningInsight{}
	}
	return &AnalysisResult{
		UserID:                   userID,
		CampaignID:               campaignID,
		InsightsExtracted:        len(insights),
		Insights:                 insights,
		UpdatedProfileConfidence: profile.LearningConfidence,
		TotalCampaignsAnalyzed:   profile.TotalCampaignsAnalyzed,
	}, nil
}

// GetProfile returns the user's current learning profile.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.UserLearningProfile, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.profiles.LoadProfile(ctx, userID)
}

// SimilarCampaign is a historical campaign resembling a proposed one.
type SimilarCampaign struct {
	CampaignID string  `json:"campaign_id"`
	Name       string  `json:"name,omitempty"`
	Similarity float64 `json:"similarity"`
	ROI        float64 `json:"roi"`
	CTR        float64 `json:"ctr"`
}

// PredictiveInsights is returned by GetPredictiveInsights.
type PredictiveInsights struct {
	UserID                  string                 `json:"user_id"`
	PredictedROI            float64                `json:"predicted_roi"`
	PredictedCTR            float64                `json:"predicted_ctr"`
	PredictedConversionRate float64                `json:"predicted_conversion_rate"`
	BudgetLevel             domain.BudgetLevel     `json:"budget_level"`
	ConfidenceLevel         domain.ConfidenceLevel `json:"confidence_level"`
	ModelAccuracy           float64                `json:"model_accuracy"`
	TrainingSampleSize      int                    `json:"training_sample_size"`
	BaselineOnly            bool                   `json:"baseline_only"`
	SimilarCampaigns        []SimilarCampaign      `json:"similar_campaigns"`
	Recommendations         []string               `json:"recommendations"`
}

const (
	maxSimilarCampaigns = 3
	maxRecommendations  = 5
)

// GetPredictiveInsights estimates outcomes for a proposed campaign from the
// user's prediction models and learned insights.
func (s *Service) GetPredictiveInsights(ctx context.Context, userID string, proposed map[string]interface{}) (*PredictiveInsights, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	features := ExtractFeatures(proposed)
	set := features.Set()

	models := make(map[string]*domain.PredictionModel, 3)
	for _, metric := range []string{domain.MetricROI, domain.MetricCTR, domain.MetricConversionRate} {
		m, err := s.loadModel(ctx, userID, metric)
		if err != nil {
			var stateErr *StateError
			if !errors.As(err, &stateErr) {
				return nil, err
			}
			logger.Warn("prediction model unreadable, predicting from baseline",
				"user_id", userID, "metric", metric, "error", err)
			m = NewPredictionModel(userID, metric, s.cfg.BaselinePrediction, s.now().UTC())
		}
		models[metric] = m
	}

	roi := models[domain.MetricROI]
	out := &PredictiveInsights{
		UserID:                  userID,
		PredictedROI:            PredictPerformance(set, roi),
		PredictedCTR:            PredictPerformance(set, models[domain.MetricCTR]),
		PredictedConversionRate: PredictPerformance(set, models[domain.MetricConversionRate]),
		BudgetLevel:             features.BudgetLevel,
		ConfidenceLevel:         DetermineConfidenceLevel(roi.TrainingSampleSize),
		ModelAccuracy:           roi.AccuracyScore,
		TrainingSampleSize:      roi.TrainingSampleSize,
		BaselineOnly:            roi.TrainingSampleSize == 0,
		SimilarCampaigns:        []SimilarCampaign{},
		Recommendations:         []string{},
	}

	history := s.history(ctx, userID, campaignIDOf(proposed))
	out.SimilarCampaigns = rankSimilar(stringsOf(proposed["demographics"]), features.Platform, history)

	profile, err := s.profiles.LoadProfile(ctx, userID)
	switch {
	case err == nil:
		out.Recommendations = topRecommendations(profile)
	case errors.Is(err, ErrProfileNotFound):
	default:
		var stateErr *StateError
		if !errors.As(err, &stateErr) {
			return nil, err
		}
		logger.Warn("learning profile unreadable, predicting without recommendations",
			"user_id", userID, "error", err)
	}
	return out, nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (*domain.UserLearningProfile, error) {
	p, err := s.profiles.LoadProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return domain.NewUserLearningProfile(userID, s.now().UTC()), nil
	}
	if err != nil {
		var stateErr *StateError
		if errors.As(err, &stateErr) {
			logger.Error("learning profile unrecoverable", "user_id", userID, "error", err)
			return nil, err
		}
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}
	if p.Insights == nil {
		p.Insights = make(map[domain.LearningType][]domain.LearningInsight)
	}
	return p, nil
}

func (s *Service) loadModel(ctx context.Context, userID, metric string) (*domain.PredictionModel, error) {
	m, err := s.models.LoadModel(ctx, userID, metric)
	if errors.Is(err, ErrModelNotFound) {
		return NewPredictionModel(userID, metric, s.cfg.BaselinePrediction, s.now().UTC()), nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// updateModels applies one observation per metric. A model that cannot be
// read is rebuilt from scratch rather than blocking learning.
func (s *Service) updateModels(ctx context.Context, userID string, features domain.FeatureSet, observed map[string]float64) {
	for metric, value := range observed {
		m, err := s.loadModel(ctx, userID, metric)
		if err != nil {
			logger.Warn("prediction model unreadable, retraining from scratch",
				"user_id", userID, "metric", metric, "error", err)
			m = NewPredictionModel(userID, metric, s.cfg.BaselinePrediction, s.now().UTC())
		}
		UpdateModel(m, features, value, s.cfg.EMAAlpha, s.now().UTC())
		if err := s.models.SaveModel(ctx, m); err != nil {
			logger.Warn("save prediction model failed", "user_id", userID, "metric", metric, "error", err)
		}
	}
}

// history returns the user's other campaigns. Repository failures degrade to
// an empty history.
func (s *Service) history(ctx context.Context, userID, excludeID string) []domain.CampaignRecord {
	if s.campaigns == nil {
		return nil
	}
	recs, err := s.campaigns.GetUserHistoricalCampaigns(ctx, userID)
	if err != nil {
		logger.Warn("historical campaigns unavailable, analyzing without history", "user_id", userID, "error", err)
		return nil
	}
	out := recs[:0:0]
	for _, r := range recs {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func historicalMean(history []domain.CampaignRecord, metric string) float64 {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	n := 0
	for _, r := range history {
		if v, ok := r.Metric(metric); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func rankSimilar(demographics []string, platform *string, history []domain.CampaignRecord) []SimilarCampaign {
	type scored struct {
		SimilarCampaign
		samePlatform bool
	}
	var candidates []scored
	for _, r := range history {
		sim := DemographicsSimilarity(demographics, r.Demographics)
		if sim == 0 {
			continue
		}
		same := false
		if platform != nil {
			for _, p := range r.Platforms {
				if p == *platform {
					same = true
					break
				}
			}
		}
		candidates = append(candidates, scored{
			SimilarCampaign: SimilarCampaign{CampaignID: r.ID, Name: r.Name, Similarity: sim, ROI: r.ROI, CTR: r.CTR},
			samePlatform:    same,
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Similarity != candidates[j].Similarity {
			return candidates[i].Similarity > candidates[j].Similarity
		}
		return candidates[i].samePlatform && !candidates[j].samePlatform
	})

	out := []SimilarCampaign{}
	for i, c := range candidates {
		if i == maxSimilarCampaigns {
			break
		}
		out = append(out, c.SimilarCampaign)
	}
	return out
}

// topRecommendations returns the first action of the most significant
// insights, without duplicates.
func topRecommendations(p *domain.UserLearningProfile) []string {
	insights := p.AllInsights()
	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].SignificanceScore > insights[j].SignificanceScore
	})
	seen := make(map[string]bool)
	out := []string{}
	for _, in := range insights {
		if len(in.RecommendedActions) == 0 {
			continue
		}
		action := in.RecommendedActions[0]
		if seen[action] {
			continue
		}
		seen[action] = true
		out = append(out, action)
		if len(out) == maxRecommendations {
			break
		}
	}
	return out
}

func campaignIDOf(campaign map[string]interface{}) string {
	for _, key := range []string{"id", "campaign_id"} {
		if v, ok := campaign[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
