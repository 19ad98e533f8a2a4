package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/ignite/adaptive-core/internal/pkg/httputil"
)

// HealthStatus represents the overall health of the system.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// BreakerStater exposes a circuit breaker's state.
type BreakerStater interface {
	State() gobreaker.State
}

// HealthChecker reports on the database, Redis, the action queue and the
// insight generator's circuit breaker.
type HealthChecker struct {
	db        *sql.DB
	redis     redis.Cmdable
	generator BreakerStater
	startTime time.Time
}

// NewHealthChecker creates a new HealthChecker.
// Any dependency can be nil; the check will report "not configured" for nil deps.
func NewHealthChecker(db *sql.DB, redisClient redis.Cmdable, generator BreakerStater) *HealthChecker {
	return &HealthChecker{
		db:        db,
		redis:     redisClient,
		generator: generator,
		startTime: time.Now(),
	}
}

const healthVersion = "1.0.0"

const notConfigured = "not configured"

// HandleHealth returns the status of all components. It always answers 200;
// the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())

	httputil.OK(w, HealthStatus{
		Status:  determineOverallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// HandleLiveness always returns 200 while the process is running.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "alive",
		"uptime": formatUptime(time.Since(hc.startTime)),
	})
}

// HandleReadiness returns 503 when a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := determineOverallStatus(checks)

	ready := overall != "unhealthy"
	httpStatus := http.StatusOK
	if !ready {
		httpStatus = http.StatusServiceUnavailable
	}

	httputil.JSON(w, httpStatus, map[string]interface{}{
		"ready":  ready,
		"status": overall,
		"checks": checks,
	})
}

func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	type result struct {
		name  string
		check ComponentCheck
	}
	ch := make(chan result, 4)

	go func() { ch <- result{"database", hc.checkDatabase(ctx)} }()
	go func() { ch <- result{"redis", hc.checkRedis(ctx)} }()
	go func() { ch <- result{"action_queue", hc.checkActionQueue(ctx)} }()
	go func() { ch <- result{"insight_generator", hc.checkGenerator()} }()

	checks := make(map[string]ComponentCheck, 4)
	for i := 0; i < 4; i++ {
		r := <-ch
		checks[r.name] = r.check
	}
	return checks
}

// probe runs fn under timeout and grades the result by latency.
func probe(ctx context.Context, timeout, slow time.Duration, fn func(context.Context) (string, error)) ComponentCheck {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	msg, err := fn(pctx)
	latency := time.Since(start)
	check := ComponentCheck{Status: "up", Latency: latency.String(), Message: msg}
	switch {
	case err != nil:
		check.Status, check.Message = "down", err.Error()
	case latency > slow:
		check.Status, check.Message = "degraded", fmt.Sprintf("slow response (%s)", latency)
	}
	return check
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	return probe(ctx, 3*time.Second, time.Second, func(ctx context.Context) (string, error) {
		if err := hc.db.PingContext(ctx); err != nil {
			return "", fmt.Errorf("ping failed: %w", err)
		}
		return "connected", nil
	})
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redis == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	return probe(ctx, 2*time.Second, 500*time.Millisecond, func(ctx context.Context) (string, error) {
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			return "", fmt.Errorf("ping failed: %w", err)
		}
		return "connected", nil
	})
}

// maxQueuedActions is the backlog above which the action queue is degraded.
const maxQueuedActions = 500

// checkActionQueue reports the backlog of queued optimization actions. A
// failed query degrades rather than fails: the table may not be migrated yet.
func (hc *HealthChecker) checkActionQueue(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	var count int
	check := probe(ctx, 3*time.Second, time.Second, func(ctx context.Context) (string, error) {
		err := hc.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM optimization_actions WHERE status = 'queued'`,
		).Scan(&count)
		if err != nil {
			return "", fmt.Errorf("queue check failed: %w", err)
		}
		return fmt.Sprintf("%d queued actions", count), nil
	})
	switch {
	case check.Status == "down":
		check.Status = "degraded"
	case count > maxQueuedActions:
		check.Status = "degraded"
		check.Message = fmt.Sprintf("high queue depth: %d actions queued", count)
	}
	return check
}

// checkGenerator maps the insight generator's breaker onto a status. An open
// breaker only degrades the service: insights fall back to the local path.
func (hc *HealthChecker) checkGenerator() ComponentCheck {
	if hc.generator == nil {
		return ComponentCheck{Status: "down", Message: notConfigured}
	}
	switch st := hc.generator.State(); st {
	case gobreaker.StateClosed:
		return ComponentCheck{Status: "up", Message: "circuit closed"}
	default:
		return ComponentCheck{Status: "degraded", Message: "circuit " + st.String()}
	}
}

// determineOverallStatus derives the aggregate status from individual checks.
//
// Rules:
//   - "unhealthy" if a configured database is down
//   - "degraded"  if any check is degraded or a configured non-critical check is down
//   - "healthy"   otherwise
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if db, ok := checks["database"]; ok && db.Status == "down" && db.Message != notConfigured {
		return "unhealthy"
	}

	for _, c := range checks {
		if c.Status == "degraded" {
			return "degraded"
		}
		if c.Status == "down" && c.Message != notConfigured {
			return "degraded"
		}
	}
	return "healthy"
}

// formatUptime renders d as "3d 4h 12m 5s", dropping leading zero units.
func formatUptime(d time.Duration) string {
	secs := int(d.Seconds())
	parts := []struct {
		n    int
		unit string
	}{
		{secs / 86400, "d"},
		{secs / 3600 % 24, "h"},
		{secs / 60 % 60, "m"},
		{secs % 60, "s"},
	}
	var b strings.Builder
	for i, p := range parts {
		if b.Len() == 0 && p.n == 0 && i < len(parts)-1 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", p.n, p.unit)
	}
	return b.String()
}
