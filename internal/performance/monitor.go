package performance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ignite/adaptive-core/internal/domain"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

// CampaignRepository is the campaign collaborator. Implementations return
// ErrCampaignNotFound for unknown IDs.
type CampaignRepository interface {
	GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignRecord, error)
	UpdateCampaignAnnotation(ctx context.Context, campaignID, note string) error
}

// AnalyticsReader returns a campaign's snapshots recorded within window.
type AnalyticsReader interface {
	GetRecentCampaignAnalytics(ctx context.Context, campaignID string, window time.Duration) ([]domain.AnalyticsSnapshot, error)
}

// MonitorConfig tunes a Monitor.
type MonitorConfig struct {
	Window     time.Duration
	Guarantee  GuaranteeTerms
	Benchmarks Benchmarks
}

// DefaultMonitorConfig returns a seven-day window with the standard guarantee
// and benchmark table.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Window:     7 * 24 * time.Hour,
		Guarantee:  DefaultGuaranteeTerms(),
		Benchmarks: DefaultBenchmarks(),
	}
}

// Monitor grades campaigns. Concurrent checks of one campaign share a single
// read of the repository and analytics.
type Monitor struct {
	cfg       MonitorConfig
	campaigns CampaignRepository
	analytics AnalyticsReader
	metrics   *telemetry.Metrics
	group     singleflight.Group
	now       func() time.Time
}

func NewMonitor(cfg MonitorConfig, campaigns CampaignRepository, analytics AnalyticsReader, metrics *telemetry.Metrics) *Monitor {
	def := DefaultMonitorConfig()
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.Guarantee.CTRMultiplier == 0 {
		cfg.Guarantee.CTRMultiplier = def.Guarantee.CTRMultiplier
	}
	if cfg.Guarantee.ROIPercent == 0 {
		cfg.Guarantee.ROIPercent = def.Guarantee.ROIPercent
	}
	if cfg.Benchmarks == nil {
		cfg.Benchmarks = def.Benchmarks
	}
	return &Monitor{
		cfg:       cfg,
		campaigns: campaigns,
		analytics: analytics,
		metrics:   metrics,
		now:       time.Now,
	}
}

// MonitorCampaignPerformance grades one campaign. It returns
// ErrCampaignNotFound for unknown campaigns.
func (m *Monitor) MonitorCampaignPerformance(ctx context.Context, campaignID string) (*domain.PerformanceMetrics, error) {
	if campaignID == "" {
		return nil, ErrMissingCampaignID
	}

	// The shared read must not fail for every waiter when the caller that
	// started it goes away.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(campaignID, func() (interface{}, error) {
		return m.check(shared, campaignID)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Shared callers each get their own copy.
		pm := res.Val.(domain.PerformanceMetrics)
		return &pm, nil
	}
}

func (m *Monitor) check(ctx context.Context, campaignID string) (domain.PerformanceMetrics, error) {
	campaign, err := m.campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, ErrCampaignNotFound) {
			return domain.PerformanceMetrics{}, err
		}
		return domain.PerformanceMetrics{}, fmt.Errorf("load campaign %s: %w", campaignID, err)
	}

	snaps, err := m.analytics.GetRecentCampaignAnalytics(ctx, campaignID, m.cfg.Window)
	if err != nil {
		return domain.PerformanceMetrics{}, fmt.Errorf("load analytics for %s: %w", campaignID, err)
	}

	bench := m.cfg.Benchmarks.Lookup(campaign.Industry)
	pm := Evaluate(campaignID, campaign.Industry, snaps, bench, m.cfg.Guarantee, m.now().UTC())
	m.metrics.MonitorCheck(string(pm.PerformanceStatus))

	logger.Info("campaign performance checked",
		"campaign_id", campaignID,
		"status", string(pm.PerformanceStatus),
		"score", pm.PerformanceScore,
		"data_points", pm.DataPoints,
		"guarantee_met", pm.GuaranteeThresholdMet)
	return pm, nil
}
