package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"
)

type HealthStatus string

const (
	Healthy   HealthStatus = "healthy"
	Unhealthy HealthStatus = "unhealthy"
)

type HealthCheck struct {
	Name        string        `json:"name"`
	Status      HealthStatus  `json:"status"`
	Duration    time.Duration `json:"duration"`
	LastChecked time.Time     `json:"last_checked"`
	Error       string        `json:"error,omitempty"`
}

type HealthReport struct {
	Status    HealthStatus           `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]HealthCheck `json:"checks,omitempty"`
}

// HealthChecker runs named dependency checks (database, redis) on demand.
type HealthChecker struct {
	checks  map[string]func(context.Context) error
	mu      sync.RWMutex
	started time.Time
	timeout time.Duration
}

func CreateHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]func(context.Context) error),
		started: time.Now(),
		timeout: 5 * time.Second,
	}
}

func (hc *HealthChecker) AddCheck(name string, check func(context.Context) error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

func (hc *HealthChecker) runCheck(ctx context.Context, name string, check func(context.Context) error) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, hc.timeout)
	defer cancel()

	start := time.Now()
	err := check(ctx)

	result := HealthCheck{
		Name:        name,
		Status:      Healthy,
		Duration:    time.Since(start),
		LastChecked: time.Now(),
	}
	if err != nil {
		result.Status = Unhealthy
		result.Error = err.Error()
	}
	return result
}

// Check runs every registered check. The report is unhealthy if any check
// fails.
func (hc *HealthChecker) Check(ctx context.Context) HealthReport {
	hc.mu.RLock()
	names := make([]string, 0, len(hc.checks))
	for name := range hc.checks {
		names = append(names, name)
	}
	hc.mu.RUnlock()
	sort.Strings(names)

	report := HealthReport{
		Status:    Healthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(hc.started).Round(time.Second).String(),
		Checks:    make(map[string]HealthCheck, len(names)),
	}

	for _, name := range names {
		hc.mu.RLock()
		check := hc.checks[name]
		hc.mu.RUnlock()

		result := hc.runCheck(ctx, name, check)
		report.Checks[name] = result
		if result.Status == Unhealthy {
			report.Status = Unhealthy
		}
	}
	return report
}
