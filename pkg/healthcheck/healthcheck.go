// Package healthcheck provides health and readiness check functionality
// Following the Health Check API pattern for cloud-native applications
package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status represents the health status
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

// Check represents a health check
type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
	Metadata    interface{}   `json:"metadata,omitempty"`
}

// Response represents the health check response
type Response struct {
	Status        Status        `json:"status"`
	Version       string        `json:"version"`
	Timestamp     time.Time     `json:"timestamp"`
	Checks        []Check       `json:"checks"`
	TotalDuration time.Duration `json:"total_duration_ms"`
}

// Checker defines the interface for health checks
type Checker interface {
	Check(ctx context.Context) Check
}

// HealthCheck manages health checks
type HealthCheck struct {
	version  string
	checkers map[string]Checker
	logger   *zap.Logger
	mu       sync.RWMutex
	cache    *Response
	cacheTTL time.Duration
}

// New creates a new health check instance
func New(version string, logger *zap.Logger) *HealthCheck {
	return &HealthCheck{
		version:  version,
		checkers: make(map[string]Checker),
		logger:   logger,
		cacheTTL: 5 * time.Second,
	}
}

// Register registers a health checker
func (h *HealthCheck) Register(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
	h.cache = nil
}

// SetCacheTTL sets the cache TTL for health check responses
func (h *HealthCheck) SetCacheTTL(ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cacheTTL = ttl
}

// Handler returns the HTTP handler for health checks
func (h *HealthCheck) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())

		// Determine HTTP status code
		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}

		h.writeJSON(w, statusCode, response)
	}
}

// LivenessHandler returns the HTTP handler for liveness checks
func (h *HealthCheck) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Simple liveness check - if the handler responds, the service is alive
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "alive",
			"timestamp": time.Now(),
		})
	}
}

// ReadinessHandler returns the HTTP handler for readiness checks.
// Degraded checks still count as ready; only unhealthy ones do not.
func (h *HealthCheck) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := h.Check(r.Context())

		if response.Status == StatusUnhealthy {
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"reason": "Health checks failed",
				"checks": response.Checks,
			})
			return
		}

		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ready",
			"timestamp": time.Now(),
		})
	}
}

func (h *HealthCheck) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("Failed to write health response", zap.Error(err))
	}
}

// Check performs all health checks
func (h *HealthCheck) Check(ctx context.Context) Response {
	h.mu.RLock()
	// Check cache
	if h.cache != nil && time.Since(h.cache.Timestamp) < h.cacheTTL {
		cached := *h.cache
		h.mu.RUnlock()
		return cached
	}
	h.mu.RUnlock()

	start := time.Now()
	response := Response{
		Version:   h.version,
		Timestamp: start,
		Status:    StatusHealthy,
		Checks:    []Check{},
	}

	// Create context with timeout
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Run checks concurrently
	var wg sync.WaitGroup

	h.mu.RLock()
	checksChan := make(chan Check, len(h.checkers))
	for name, checker := range h.checkers {
		wg.Add(1)
		go func(n string, c Checker) {
			defer wg.Done()
			check := c.Check(checkCtx)
			check.Name = n
			checksChan <- check
		}(name, checker)
	}
	h.mu.RUnlock()

	wg.Wait()
	close(checksChan)

	// Collect results
	for check := range checksChan {
		response.Checks = append(response.Checks, check)

		// Update overall status
		if check.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		} else if check.Status == StatusDegraded && response.Status == StatusHealthy {
			response.Status = StatusDegraded
		}
	}
	sort.Slice(response.Checks, func(i, j int) bool {
		return response.Checks[i].Name < response.Checks[j].Name
	})

	response.TotalDuration = time.Since(start)

	if response.Status != StatusHealthy {
		h.logger.Warn("Health check not healthy", zap.String("status", string(response.Status)))
	}

	// Update cache
	h.mu.Lock()
	h.cache = &response
	h.mu.Unlock()

	return response
}

// Pinger is anything with a connectivity check, such as a state store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker reports unhealthy when Ping fails
type PingChecker struct {
	pinger   Pinger
	metadata interface{}
}

// NewPingChecker creates a new ping checker
func NewPingChecker(pinger Pinger, metadata interface{}) *PingChecker {
	return &PingChecker{pinger: pinger, metadata: metadata}
}

// Check performs the ping
func (p *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	check := Check{
		LastChecked: start,
		Metadata:    p.metadata,
	}

	err := p.pinger.Ping(ctx)
	check.Duration = time.Since(start)

	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
		return check
	}

	check.Status = StatusHealthy
	return check
}

// CustomChecker allows for custom health check logic
type CustomChecker struct {
	check func(ctx context.Context) (Status, string, interface{})
}

// NewCustomChecker creates a new custom checker
func NewCustomChecker(check func(ctx context.Context) (Status, string, interface{})) *CustomChecker {
	return &CustomChecker{check: check}
}

// Check performs the custom health check
func (c *CustomChecker) Check(ctx context.Context) Check {
	start := time.Now()
	status, message, metadata := c.check(ctx)

	return Check{
		Status:      status,
		Message:     message,
		Metadata:    metadata,
		LastChecked: start,
		Duration:    time.Since(start),
	}
}
