package backend

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	// Default interval between health checks.
	defaultHealthInterval = 30 * time.Second
	// Timeout for a single health-check ping.
	healthCheckTimeout = 5 * time.Second
)

// Target is one upstream endpoint pinged by the HealthChecker.
type Target struct {
	Name   string
	Method string
	URL    string
}

// DefaultTargets returns the ping endpoints of the three configured upstreams.
func (p *Pool) DefaultTargets() []Target {
	return []Target{
		{Name: "analytics", Method: http.MethodGet, URL: trimBase(p.cfg.UmamiURL) + "/api/heartbeat"},
		{Name: "fediverse", Method: http.MethodPost, URL: trimBase(p.cfg.FediverseURL) + "/api/ping"},
		{Name: "index", Method: http.MethodGet, URL: trimBase(p.cfg.IndexURL) + IndexPath},
	}
}

// targetStatus tracks the availability of a single upstream.
type targetStatus struct {
	available    bool
	lastChecked  time.Time
	lastErr      string
	failureCount int
}

// HealthChecker periodically pings every upstream and keeps an in-memory
// availability map for the readiness probe. It never touches the metadata
// cache; refreshes stay lazy.
type HealthChecker struct {
	pool     *Pool
	interval time.Duration
	targets  []Target

	mu       sync.RWMutex
	statuses map[string]*targetStatus // keyed by target name

	cancel context.CancelFunc
	done   chan struct{}
}

// NewHealthChecker creates a health checker for targets, or for the pool's
// default targets when none are given. Call Start() to begin checking.
func NewHealthChecker(pool *Pool, interval time.Duration, targets ...Target) *HealthChecker {
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	if len(targets) == 0 {
		targets = pool.DefaultTargets()
	}
	return &HealthChecker{
		pool:     pool,
		interval: interval,
		targets:  targets,
		statuses: make(map[string]*targetStatus),
		done:     make(chan struct{}),
	}
}

// Start begins the background health-check loop. It runs an immediate check
// on startup, then repeats at the configured interval. Safe to call once.
func (hc *HealthChecker) Start(ctx context.Context) {
	ctx, hc.cancel = context.WithCancel(ctx)

	go func() {
		defer close(hc.done)

		hc.checkAll(ctx)

		ticker := time.NewTicker(hc.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				hc.checkAll(ctx)
			}
		}
	}()
}

// Stop signals the health-check loop to stop and waits for it to finish.
func (hc *HealthChecker) Stop() {
	if hc.cancel != nil {
		hc.cancel()
	}
	<-hc.done
}

// IsAvailable reports whether the named upstream is considered reachable.
// Upstreams that have never been checked are assumed available.
func (hc *HealthChecker) IsAvailable(name string) bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	s, ok := hc.statuses[name]
	if !ok {
		return true
	}
	return s.available
}

// AllAvailable reports whether every target is currently available.
func (hc *HealthChecker) AllAvailable() bool {
	for _, t := range hc.targets {
		if !hc.IsAvailable(t.Name) {
			return false
		}
	}
	return true
}

// UpstreamHealthStatus is a snapshot of one upstream's health for /ready.
type UpstreamHealthStatus struct {
	Name         string    `json:"name"`
	Available    bool      `json:"available"`
	LastChecked  time.Time `json:"last_checked"`
	LastError    string    `json:"last_error,omitempty"`
	FailureCount int       `json:"failure_count"`
}

// Statuses returns a snapshot of all tracked upstream statuses, sorted by name.
func (hc *HealthChecker) Statuses() []UpstreamHealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	result := make([]UpstreamHealthStatus, 0, len(hc.statuses))
	for name, s := range hc.statuses {
		result = append(result, UpstreamHealthStatus{
			Name:         name,
			Available:    s.available,
			LastChecked:  s.lastChecked,
			LastError:    s.lastErr,
			FailureCount: s.failureCount,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// checkAll pings every target concurrently.
func (hc *HealthChecker) checkAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, t := range hc.targets {
		wg.Add(1)
		go func(t Target) {
			defer wg.Done()
			hc.checkOne(ctx, t)
		}(t)
	}
	wg.Wait()
}

func (hc *HealthChecker) checkOne(ctx context.Context, t Target) {
	reqCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, t.Method, t.URL, nil)
	if err != nil {
		hc.recordResult(t.Name, fmt.Errorf("bad url: %w", err))
		return
	}

	resp, err := hc.pool.jsonClient.Do(req)
	if err != nil {
		hc.recordResult(t.Name, err)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		hc.recordResult(t.Name, nil)
	} else {
		hc.recordResult(t.Name, fmt.Errorf("status %d", resp.StatusCode))
	}
}

// recordResult updates the in-memory status for a target. Two consecutive
// failures mark it unavailable; the first success marks it available again.
func (hc *HealthChecker) recordResult(name string, err error) {
	hc.mu.Lock()
	defer hc.mu.Unlock()

	s, ok := hc.statuses[name]
	if !ok {
		s = &targetStatus{available: true}
		hc.statuses[name] = s
	}

	s.lastChecked = time.Now()

	if err == nil {
		if !s.available {
			slog.Info("upstream came back online", "upstream", name)
		}
		s.available = true
		s.failureCount = 0
		s.lastErr = ""
		return
	}

	s.failureCount++
	s.lastErr = err.Error()

	if s.failureCount >= 2 && s.available {
		slog.Warn("upstream marked unavailable",
			"upstream", name,
			"failures", s.failureCount, "error", err)
		s.available = false
	}
}
