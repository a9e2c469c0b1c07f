package service

import (
	"context"
	"time"
)

// Health status constants
const (
	StatusHealthy      = "healthy"
	StatusDegraded     = "degraded"
	StatusUnhealthy    = "unhealthy"
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// HealthStatus represents the overall health status of the application
type HealthStatus struct {
	Status    string            `json:"status"`
	Services  map[string]string `json:"services"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version,omitempty"`
}

// Pinger is anything that can report reachability, such as *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// QueueStatus reports whether the fault queue connection is up
type QueueStatus interface {
	IsConnected() bool
}

// HealthChecker handles health check operations
type HealthChecker struct {
	db      Pinger
	redis   Pinger
	queue   QueueStatus
	version string
	timeout time.Duration
}

// NewHealthService creates a new HealthChecker. A nil queue or redis is
// reported as disconnected.
func NewHealthService(db Pinger, redis Pinger, queue QueueStatus, version string) *HealthChecker {
	return &HealthChecker{
		db:      db,
		redis:   redis,
		queue:   queue,
		version: version,
		timeout: 2 * time.Second,
	}
}

func (h *HealthChecker) ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return StatusDisconnected
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := p.PingContext(ctx); err != nil {
		return StatusDisconnected
	}
	return StatusConnected
}

func (h *HealthChecker) checkQueue() string {
	if h.queue == nil || !h.queue.IsConnected() {
		return StatusDisconnected
	}
	return StatusConnected
}

// determineOverallStatus: the database is required, the queue and message
// store only degrade the editor
func (h *HealthChecker) determineOverallStatus(services map[string]string) string {
	if services["database"] == StatusDisconnected {
		return StatusUnhealthy
	}
	if services["queue"] == StatusDisconnected || services["messages"] == StatusDisconnected {
		return StatusDegraded
	}
	return StatusHealthy
}

// CheckHealth performs health checks on all dependencies and returns the overall status
func (h *HealthChecker) CheckHealth(ctx context.Context) *HealthStatus {
	services := map[string]string{
		"database": h.ping(ctx, h.db),
		"messages": h.ping(ctx, h.redis),
		"queue":    h.checkQueue(),
	}

	return &HealthStatus{
		Status:    h.determineOverallStatus(services),
		Services:  services,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	}
}
