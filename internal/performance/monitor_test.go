package performance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/adaptive-core/internal/domain"
)

func newTestMonitor(campaigns CampaignRepository, analytics AnalyticsReader) *Monitor {
	m := NewMonitor(MonitorConfig{}, campaigns, analytics, nil)
	m.now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return m
}

func TestMonitorCampaignPerformance(t *testing.T) {
	campaigns := newMemCampaigns(domain.CampaignRecord{ID: "c1", UserID: "u1", Industry: "Technology"})
	analytics := newMemAnalytics()
	analytics.snaps["c1"] = []domain.AnalyticsSnapshot{
		{Clicks: 200, Conversions: 10, CTR: 3.2, CPC: 2.5, ROI: 320},
	}

	pm, err := newTestMonitor(campaigns, analytics).MonitorCampaignPerformance(context.Background(), "c1")
	require.NoError(t, err)

	assert.Equal(t, "c1", pm.CampaignID)
	assert.Equal(t, 2.09, pm.IndustryBenchmarkCTR)
	assert.Equal(t, 3.80, pm.IndustryBenchmarkCPC)
	assert.InDelta(t, 5.0, pm.ConversionRate, 1e-9)
	// ctr 30 + cpc 20 + conversion 25 + roi 25
	assert.Equal(t, 100, pm.PerformanceScore)
	assert.Equal(t, domain.StatusExcellent, pm.PerformanceStatus)
	assert.False(t, pm.NeedsOptimization)
	assert.True(t, pm.GuaranteeThresholdMet)
}

func TestMonitorCampaignPerformance_Pending(t *testing.T) {
	campaigns := newMemCampaigns(domain.CampaignRecord{ID: "c1", UserID: "u1"})

	pm, err := newTestMonitor(campaigns, newMemAnalytics()).MonitorCampaignPerformance(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, pm.PerformanceStatus)
	assert.False(t, pm.NeedsOptimization)
	assert.Equal(t, 0, pm.DataPoints)
}

func TestMonitorCampaignPerformance_Errors(t *testing.T) {
	campaigns := newMemCampaigns(domain.CampaignRecord{ID: "c1", UserID: "u1"})
	analytics := newMemAnalytics()
	m := newTestMonitor(campaigns, analytics)

	_, err := m.MonitorCampaignPerformance(context.Background(), "")
	assert.ErrorIs(t, err, ErrMissingCampaignID)

	_, err = m.MonitorCampaignPerformance(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCampaignNotFound)

	analytics.err = errors.New("warehouse offline")
	_, err = m.MonitorCampaignPerformance(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warehouse offline")
	assert.NotErrorIs(t, err, ErrCampaignNotFound)
}

func TestMonitorCampaignPerformance_CollapsesConcurrentChecks(t *testing.T) {
	campaigns := newMemCampaigns(domain.CampaignRecord{ID: "c1", UserID: "u1"})
	analytics := newMemAnalytics()
	analytics.snaps["c1"] = []domain.AnalyticsSnapshot{{Clicks: 10, Conversions: 1, CTR: 2, CPC: 2, ROI: 100}}
	analytics.entered = make(chan struct{}, 8)
	analytics.release = make(chan struct{})
	m := newTestMonitor(campaigns, analytics)

	const callers = 5
	results := make([]*domain.PerformanceMetrics, callers)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pm, err := m.MonitorCampaignPerformance(context.Background(), "c1")
		assert.NoError(t, err)
		results[0] = pm
	}()
	<-analytics.entered

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pm, err := m.MonitorCampaignPerformance(context.Background(), "c1")
			assert.NoError(t, err)
			results[i] = pm
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(analytics.release)
	wg.Wait()

	assert.Equal(t, 1, analytics.callCount())
	for i := 1; i < callers; i++ {
		require.NotNil(t, results[i])
		assert.Equal(t, *results[0], *results[i])
		assert.NotSame(t, results[0], results[i])
	}
}

func TestMonitorCampaignPerformance_CallerCancellation(t *testing.T) {
	campaigns := newMemCampaigns(domain.CampaignRecord{ID: "c1", UserID: "u1"})
	analytics := newMemAnalytics()
	analytics.entered = make(chan struct{}, 1)
	analytics.release = make(chan struct{})
	m := newTestMonitor(campaigns, analytics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.MonitorCampaignPerformance(ctx, "c1")
		done <- err
	}()
	<-analytics.entered
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller was not released")
	}
	close(analytics.release)
}
