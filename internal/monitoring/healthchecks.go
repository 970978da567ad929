package monitoring

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"
)

const (
	HEALTHCHECK_TIMER   = 15 * time.Second
	HEALTHCHECK_TIMEOUT = 5 * time.Second
)

// Check reports whether one remote dependency is reachable.
type Check func(ctx context.Context) bool

type dependency struct {
	name    string
	check   Check
	healthy atomic.Bool
	checked bool
}

// Monitor polls remote dependencies in the background. Register every
// dependency before calling Run.
type Monitor struct {
	deps     []*dependency
	interval time.Duration
}

func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = HEALTHCHECK_TIMER
	}
	return &Monitor{interval: interval}
}

func (m *Monitor) Register(name string, check Check) {
	m.deps = append(m.deps, &dependency{name: name, check: check})
}

// CheckNow runs every check once.
func (m *Monitor) CheckNow(ctx context.Context) {
	for _, d := range m.deps {
		checkCtx, cancel := context.WithTimeout(ctx, HEALTHCHECK_TIMEOUT)
		isHealthy := d.check(checkCtx)
		cancel()

		was := d.healthy.Swap(isHealthy)
		if !isHealthy {
			slog.Warn("[HealthCheck] Dependency is unhealthy", slog.String("dependency", d.name))
		} else if !was && d.checked {
			slog.Info("[HealthCheck] Dependency recovered", slog.String("dependency", d.name))
		}
		d.checked = true
	}
}

func (m *Monitor) Run(ctx context.Context) {
	m.CheckNow(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckNow(ctx)
		}
	}
}

// Status returns the last observed health per dependency.
func (m *Monitor) Status() map[string]bool {
	out := make(map[string]bool, len(m.deps))
	for _, d := range m.deps {
		out[d.name] = d.healthy.Load()
	}
	return out
}

func (m *Monitor) Healthy() bool {
	for _, d := range m.deps {
		if !d.healthy.Load() {
			return false
		}
	}
	return true
}

func (m *Monitor) Names() []string {
	names := make([]string, 0, len(m.deps))
	for _, d := range m.deps {
		names = append(names, d.name)
	}
	sort.Strings(names)
	return names
}
