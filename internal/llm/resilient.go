package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/ignite/adaptive-core/internal/learning"
	"github.com/ignite/adaptive-core/internal/pkg/logger"
	"github.com/ignite/adaptive-core/internal/telemetry"
)

// BreakerSettings tunes a Resilient generator.
type BreakerSettings struct {
	// Timeout bounds each call to the wrapped generator.
	Timeout time.Duration
	// ConsecutiveFailures opens the circuit.
	ConsecutiveFailures uint32
	// OpenFor is how long the circuit stays open before probing.
	OpenFor time.Duration
}

// DefaultBreakerSettings returns the production tuning.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{Timeout: 15 * time.Second, ConsecutiveFailures: 5, OpenFor: time.Minute}
}

// Resilient wraps a generator with a per-call timeout and a circuit breaker.
// While the circuit is open calls fail at once, which sends insight
// generation straight to its fallback.
type Resilient struct {
	next    learning.TextGenerator
	cb      *gobreaker.CircuitBreaker[string]
	timeout time.Duration
}

// NewResilient wraps next. name labels the breaker in logs and metrics.
func NewResilient(name string, next learning.TextGenerator, s BreakerSettings, metrics *telemetry.Metrics) *Resilient {
	def := DefaultBreakerSettings()
	if s.Timeout <= 0 {
		s.Timeout = def.Timeout
	}
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = def.ConsecutiveFailures
	}
	if s.OpenFor <= 0 {
		s.OpenFor = def.OpenFor
	}

	metrics.BreakerState(name, 0)
	cb := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     s.OpenFor,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// A caller that gave up says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("generator circuit state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState(name, stateValue(to))
		},
	})
	return &Resilient{next: next, cb: cb, timeout: s.Timeout}
}

func (r *Resilient) Generate(ctx context.Context, prompt string) (string, error) {
	text, err := r.cb.Execute(func() (string, error) {
		ctx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		return r.next.Generate(ctx, prompt)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("generator unavailable: %w", err)
	}
	return text, err
}

// State reports the breaker state.
func (r *Resilient) State() gobreaker.State { return r.cb.State() }

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	}
	return 0
}
