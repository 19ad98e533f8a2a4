package performance

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/adaptive-core/internal/pkg/logger"
)

// DefaultInitialDelay is how long after launch the first check runs.
const DefaultInitialDelay = 5 * time.Minute

// CheckFunc runs the post-launch check for one campaign.
type CheckFunc func(ctx context.Context, campaignID, userID string)

// Scheduler runs one delayed check per launched campaign. It does not
// re-check on a cadence.
type Scheduler struct {
	delay   time.Duration
	check   CheckFunc
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	pending map[string]*scheduled
	wg      sync.WaitGroup
	stopped bool
}

type scheduled struct {
	timer  *time.Timer
	userID string
}

func NewScheduler(delay time.Duration, check CheckFunc) *Scheduler {
	if delay <= 0 {
		delay = DefaultInitialDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		delay:   delay,
		check:   check,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]*scheduled),
	}
}

// ScheduleInitialCheck arms the check for campaignID, replacing any check
// already pending for it. It reports false once the scheduler is stopped.
func (s *Scheduler) ScheduleInitialCheck(campaignID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if prev, ok := s.pending[campaignID]; ok {
		prev.timer.Stop()
	}

	entry := &scheduled{userID: userID}
	entry.timer = time.AfterFunc(s.delay, func() { s.fire(campaignID, entry) })
	s.pending[campaignID] = entry

	logger.Info("initial performance check scheduled",
		"campaign_id", campaignID,
		"user_id", userID,
		"delay", s.delay.String())
	return true
}

func (s *Scheduler) fire(campaignID string, entry *scheduled) {
	s.mu.Lock()
	// A replaced or cancelled entry may still fire if its timer had already
	// expired when Stop was called.
	if s.stopped || s.pending[campaignID] != entry {
		s.mu.Unlock()
		return
	}
	delete(s.pending, campaignID)
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("scheduled check panicked", "campaign_id", campaignID, "panic", r)
		}
	}()
	s.check(s.ctx, campaignID, entry.userID)
}

// Cancel drops the pending check for campaignID, if any.
func (s *Scheduler) Cancel(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.pending[campaignID]
	if !ok {
		return false
	}
	entry.timer.Stop()
	delete(s.pending, campaignID)
	return true
}

// Pending returns the number of armed checks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Stop cancels every pending check and waits for running ones to return or
// for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	for id, entry := range s.pending {
		entry.timer.Stop()
		delete(s.pending, id)
	}
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
