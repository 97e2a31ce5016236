package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// HealthChecker reports liveness of the paper trading loop.
type HealthChecker struct {
	mu           sync.RWMutex
	lastDecision time.Time
	lastPrice    float64
	isConnected  bool
	errors       []string
}

type HealthStatus struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastDecision time.Time `json:"last_decision"`
	LastPrice    float64   `json:"last_price"`
	IsConnected  bool      `json:"is_connected"`
	Uptime       string    `json:"uptime"`
	Errors       []string  `json:"errors,omitempty"`
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		errors: make([]string, 0),
	}
}

// MarkDecision records a completed decision cycle.
func (h *HealthChecker) MarkDecision(price float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastDecision = time.Now()
	h.lastPrice = price
}

// SetConnected flags whether the market data feed is reachable.
func (h *HealthChecker) SetConnected(connected bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isConnected = connected
}

// RecordError appends a loop error to the health report.
func (h *HealthChecker) RecordError(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, msg)
	if len(h.errors) > 20 {
		h.errors = h.errors[len(h.errors)-20:]
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if !h.isConnected || time.Since(h.lastDecision) > time.Hour*24 {
		status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if len(h.errors) > 0 {
		status = "unhealthy"
		w.WriteHeader(http.StatusInternalServerError)
	}

	health := HealthStatus{
		Status:       status,
		Timestamp:    time.Now(),
		LastDecision: h.lastDecision,
		LastPrice:    h.lastPrice,
		IsConnected:  h.isConnected,
		Uptime:       time.Since(startTime).String(),
		Errors:       h.errors,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
