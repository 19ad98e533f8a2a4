package performance

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/osteele/liquid"
	"golang.org/x/sync/errgroup"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

// DefaultActionTimeout bounds a single action execution.
const DefaultActionTimeout = 30 * time.Second

// OptimizeResult is the outcome of one auto-optimization pass.
type OptimizeResult struct {
	CampaignID     string                      `json:"campaign_id"`
	Optimized      bool                        `json:"optimized"`
	ActionsTaken   []domain.ActionOutcome      `json:"actions_taken"`
	ManualReview   []domain.OptimizationAction `json:"manual_review"`
	UpdatedMetrics *domain.PerformanceMetrics  `json:"updated_metrics"`
}

const annotationTemplate = `[auto-optimize {{ checked_at }}] score {{ score }} ({{ status }}){% if guarantee_met %}, guarantee met{% else %}, guarantee not met{% endif %}.{% for o in outcomes %} {{ o.type }}: {{ o.status }}{% if o.error != "" %} ({{ o.error }}){% endif %};{% endfor %}{% if manual_count > 0 %} {{ manual_count }} action(s) awaiting review: {{ manual | join: ", " }}.{% endif %}`

// Optimizer runs the decision engine against a live grade and executes the
// high-priority actions.
type Optimizer struct {
	monitor       *Monitor
	campaigns     CampaignRepository
	executor      ActionExecutor
	notifier      Notifier
	metrics       *telemetry.Metrics
	actionTimeout time.Duration
	annotation    *liquid.Template
}

// OptimizerDeps are the optimizer's collaborators. Notifier may be nil.
type OptimizerDeps struct {
	Monitor   *Monitor
	Campaigns CampaignRepository
	Executor  ActionExecutor
	Notifier  Notifier
	Metrics   *telemetry.Metrics
}

func NewOptimizer(deps OptimizerDeps, actionTimeout time.Duration) (*Optimizer, error) {
	tpl, err := liquid.NewEngine().ParseString(annotationTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse annotation template: %w", err)
	}
	if actionTimeout <= 0 {
		actionTimeout = DefaultActionTimeout
	}
	return &Optimizer{
		monitor:       deps.Monitor,
		campaigns:     deps.Campaigns,
		executor:      deps.Executor,
		notifier:      deps.Notifier,
		metrics:       deps.Metrics,
		actionTimeout: actionTimeout,
		annotation:    tpl,
	}, nil
}

// AutoOptimizeCampaign grades the campaign, executes every auto-executable
// action and returns the rest for manual review. A campaign that belongs to
// another user is reported as not found.
func (o *Optimizer) AutoOptimizeCampaign(ctx context.Context, campaignID, userID string) (*OptimizeResult, error) {
	if campaignID == "" {
		return nil, ErrMissingCampaignID
	}
	campaign, err := o.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if userID != "" && campaign.UserID != userID {
		return nil, ErrCampaignNotFound
	}
	if userID == "" {
		userID = campaign.UserID
	}

	before, err := o.monitor.MonitorCampaignPerformance(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	result := &OptimizeResult{
		CampaignID:     campaignID,
		ActionsTaken:   []domain.ActionOutcome{},
		ManualReview:   []domain.OptimizationAction{},
		UpdatedMetrics: before,
	}

	if before.PerformanceStatus != domain.StatusPending && !before.GuaranteeThresholdMet {
		o.notify(ctx, userID, *before)
	}
	if !before.NeedsOptimization {
		return result, nil
	}

	auto, manual := SplitActions(GenerateActions(*before))
	if manual != nil {
		result.ManualReview = manual
	}
	if len(auto) == 0 && len(manual) == 0 {
		return result, nil
	}

	result.ActionsTaken = o.execute(ctx, auto, campaignID, userID)
	for _, outcome := range result.ActionsTaken {
		if outcome.Status == domain.ActionSucceeded {
			result.Optimized = true
			break
		}
	}

	if err := o.annotate(ctx, *before, result); err != nil {
		logger.Warn("optimization annotation failed", "campaign_id", campaignID, "error", err)
	}

	if after, err := o.monitor.MonitorCampaignPerformance(ctx, campaignID); err == nil {
		result.UpdatedMetrics = after
	} else {
		logger.Warn("post-optimization check failed", "campaign_id", campaignID, "error", err)
	}

	logger.Info("campaign optimized",
		"campaign_id", campaignID,
		"user_id", userID,
		"executed", len(result.ActionsTaken),
		"manual_review", len(result.ManualReview))
	return result, nil
}

// execute runs each action in its own goroutine. Failures and panics are
// recorded on that action's outcome only.
func (o *Optimizer) execute(ctx context.Context, actions []domain.OptimizationAction, campaignID, userID string) []domain.ActionOutcome {
	outcomes := make([]domain.ActionOutcome, len(actions))
	var g errgroup.Group
	for i, action := range actions {
		g.Go(func() error {
			outcomes[i] = o.runAction(ctx, action, campaignID, userID)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Optimizer) runAction(ctx context.Context, action domain.OptimizationAction, campaignID, userID string) (outcome domain.ActionOutcome) {
	outcome = domain.ActionOutcome{Action: action, Status: domain.ActionFailed}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("optimization action panicked",
				"campaign_id", campaignID,
				"action_type", string(action.ActionType),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
			outcome = domain.ActionOutcome{Action: action, Status: domain.ActionFailed, Error: fmt.Sprintf("panic: %v", r)}
		}
		o.metrics.OptimizationAction(string(action.ActionType), string(outcome.Status))
	}()

	actx, cancel := context.WithTimeout(ctx, o.actionTimeout)
	defer cancel()

	details, err := o.executor.Execute(actx, action, campaignID, userID)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) {
			msg = "timed out: " + msg
		}
		logger.Warn("optimization action failed",
			"campaign_id", campaignID,
			"action_type", string(action.ActionType),
			"error", err)
		outcome.Error = msg
		return outcome
	}
	outcome.Status = domain.ActionSucceeded
	outcome.Details = details
	return outcome
}

func (o *Optimizer) notify(ctx context.Context, userID string, m domain.PerformanceMetrics) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.NotifyGuaranteeMiss(ctx, userID, m); err != nil {
		logger.Warn("guarantee miss notification failed", "campaign_id", m.CampaignID, "error", err)
	}
}

func (o *Optimizer) annotate(ctx context.Context, m domain.PerformanceMetrics, result *OptimizeResult) error {
	outcomes := make([]map[string]interface{}, 0, len(result.ActionsTaken))
	for _, oc := range result.ActionsTaken {
		outcomes = append(outcomes, map[string]interface{}{
			"type":   string(oc.Action.ActionType),
			"status": string(oc.Status),
			"error":  oc.Error,
		})
	}
	manual := make([]string, 0, len(result.ManualReview))
	for _, a := range result.ManualReview {
		manual = append(manual, string(a.ActionType))
	}

	note, err := o.annotation.RenderString(map[string]interface{}{
		"checked_at":    m.CheckedAt.Format(time.RFC3339),
		"score":         m.PerformanceScore,
		"status":        string(m.PerformanceStatus),
		"guarantee_met": m.GuaranteeThresholdMet,
		"outcomes":      outcomes,
		"manual_count":  len(manual),
		"manual":        manual,
	})
	if err != nil {
		return fmt.Errorf("render annotation: %w", err)
	}
	return o.campaigns.UpdateCampaignAnnotation(ctx, m.CampaignID, note)
}

// ScheduledCheck is a CheckFunc that optimizes the campaign and logs the
// outcome.
func (o *Optimizer) ScheduledCheck(ctx context.Context, campaignID, userID string) {
	res, err := o.AutoOptimizeCampaign(ctx, campaignID, userID)
	if err != nil {
		logger.Error("scheduled performance check failed", "campaign_id", campaignID, "user_id", userID, "error", err)
		return
	}
	logger.Info("scheduled performance check complete",
		"campaign_id", campaignID,
		"status", string(res.UpdatedMetrics.PerformanceStatus),
		"optimized", res.Optimized)
}
