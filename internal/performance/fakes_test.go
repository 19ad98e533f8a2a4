package performance

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/adaptive-core/internal/domain"
)

type memCampaigns struct {
	mu          sync.Mutex
	campaigns   map[string]*domain.CampaignRecord
	annotations map[string][]string
	annotateErr error
}

func newMemCampaigns(records ...domain.CampaignRecord) *memCampaigns {
	m := &memCampaigns{
		campaigns:   make(map[string]*domain.CampaignRecord),
		annotations: make(map[string][]string),
	}
	for i := range records {
		rec := records[i]
		m.campaigns[rec.ID] = &rec
	}
	return m
}

func (m *memCampaigns) GetCampaign(_ context.Context, id string) (*domain.CampaignRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.campaigns[id]
	if !ok {
		return nil, ErrCampaignNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memCampaigns) UpdateCampaignAnnotation(_ context.Context, id, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.annotateErr != nil {
		return m.annotateErr
	}
	if _, ok := m.campaigns[id]; !ok {
		return ErrCampaignNotFound
	}
	m.annotations[id] = append(m.annotations[id], note)
	return nil
}

func (m *memCampaigns) notes(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.annotations[id]...)
}

type memAnalytics struct {
	mu      sync.Mutex
	snaps   map[string][]domain.AnalyticsSnapshot
	err     error
	calls   int
	entered chan struct{}
	release chan struct{}
}

func newMemAnalytics() *memAnalytics {
	return &memAnalytics{snaps: make(map[string][]domain.AnalyticsSnapshot)}
}

func (a *memAnalytics) GetRecentCampaignAnalytics(_ context.Context, id string, _ time.Duration) ([]domain.AnalyticsSnapshot, error) {
	a.mu.Lock()
	a.calls++
	entered, release := a.entered, a.release
	a.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if release != nil {
		<-release
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return append([]domain.AnalyticsSnapshot(nil), a.snaps[id]...), nil
}

func (a *memAnalytics) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type funcExecutor func(ctx context.Context, action domain.OptimizationAction) (map[string]interface{}, error)

func (f funcExecutor) Execute(ctx context.Context, action domain.OptimizationAction, _, _ string) (map[string]interface{}, error) {
	return f(ctx, action)
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []domain.PerformanceMetrics
	users []string
	err   error
}

func (n *recordingNotifier) NotifyGuaranteeMiss(_ context.Context, userID string, m domain.PerformanceMetrics) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	n.users = append(n.users, userID)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}
