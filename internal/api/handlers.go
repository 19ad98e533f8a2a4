package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/learning"
	"github.com/ignite/adaptive-core/internal/performance"
	"github.com/ignite/adaptive-core/internal/pkg/httputil"
)

// LearningService is the learning engine as seen by the API.
type LearningService interface {
	AnalyzeCampaignPerformance(ctx context.Context, userID string, campaign map[string]interface{}) (*learning.AnalysisResult, error)
	GetPredictiveInsights(ctx context.Context, userID string, proposed map[string]interface{}) (*learning.PredictiveInsights, error)
	GetProfile(ctx context.Context, userID string) (*domain.UserLearningProfile, error)
}

// PerformanceMonitor grades a campaign.
type PerformanceMonitor interface {
	MonitorCampaignPerformance(ctx context.Context, campaignID string) (*domain.PerformanceMetrics, error)
}

// CampaignOptimizer runs an auto-optimization pass.
type CampaignOptimizer interface {
	AutoOptimizeCampaign(ctx context.Context, campaignID, userID string) (*performance.OptimizeResult, error)
}

// CheckScheduler arms the post-launch performance check.
type CheckScheduler interface {
	ScheduleInitialCheck(campaignID, userID string) bool
}

// CampaignLookup resolves campaign ownership.
type CampaignLookup interface {
	GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignRecord, error)
}

// Handlers serves the learning and performance endpoints.
type Handlers struct {
	learning  LearningService
	monitor   PerformanceMonitor
	optimizer CampaignOptimizer
	scheduler CheckScheduler
	campaigns CampaignLookup
}

// HandlerDeps are the services behind the handlers.
type HandlerDeps struct {
	Learning  LearningService
	Monitor   PerformanceMonitor
	Optimizer CampaignOptimizer
	Scheduler CheckScheduler
	Campaigns CampaignLookup
}

func NewHandlers(deps HandlerDeps) *Handlers {
	return &Handlers{
		learning:  deps.Learning,
		monitor:   deps.Monitor,
		optimizer: deps.Optimizer,
		scheduler: deps.Scheduler,
		campaigns: deps.Campaigns,
	}
}

// AnalyzeCampaign learns from one campaign outcome. The body is the raw
// campaign record; malformed fields are defaulted, not rejected.
//
//	POST /api/users/{userID}/campaigns/analyze
func (h *Handlers) AnalyzeCampaign(w http.ResponseWriter, r *http.Request) {
	var campaign map[string]interface{}
	if !httputil.Decode(w, r, &campaign) {
		return
	}
	res, err := h.learning.AnalyzeCampaignPerformance(r.Context(), chi.URLParam(r, "userID"), campaign)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, res)
}

// PredictiveInsights forecasts a proposed campaign.
//
//	POST /api/users/{userID}/predictions
func (h *Handlers) PredictiveInsights(w http.ResponseWriter, r *http.Request) {
	var proposed map[string]interface{}
	if !httputil.Decode(w, r, &proposed) {
		return
	}
	res, err := h.learning.GetPredictiveInsights(r.Context(), chi.URLParam(r, "userID"), proposed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, res)
}

// GetProfile returns the user's learning profile.
//
//	GET /api/users/{userID}/profile
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.learning.GetProfile(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, p)
}

// CampaignPerformance grades the campaign now.
//
//	GET /api/campaigns/{campaignID}/performance
func (h *Handlers) CampaignPerformance(w http.ResponseWriter, r *http.Request) {
	pm, err := h.monitor.MonitorCampaignPerformance(r.Context(), chi.URLParam(r, "campaignID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, pm)
}

// OptimizeCampaign runs auto-optimization for the campaign owner.
//
//	POST /api/campaigns/{campaignID}/optimize?user_id=
func (h *Handlers) OptimizeCampaign(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httputil.BadRequest(w, "user_id is required")
		return
	}
	res, err := h.optimizer.AutoOptimizeCampaign(r.Context(), chi.URLParam(r, "campaignID"), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httputil.OK(w, res)
}

// CampaignLaunched arms the initial performance check for a campaign that
// has just gone live.
//
//	POST /api/campaigns/{campaignID}/launched?user_id=
func (h *Handlers) CampaignLaunched(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		httputil.BadRequest(w, "user_id is required")
		return
	}

	c, err := h.campaigns.GetCampaign(r.Context(), campaignID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if c.UserID != userID {
		writeError(w, r, performance.ErrCampaignNotFound)
		return
	}

	if !h.scheduler.ScheduleInitialCheck(campaignID, userID) {
		httputil.ErrorCode(w, http.StatusServiceUnavailable, "shutting_down", "scheduler is stopped")
		return
	}
	httputil.Accepted(w, map[string]interface{}{
		"campaign_id": campaignID,
		"scheduled":   true,
	})
}
