package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"authlink/internal/queue"
)

// Extended probes share one deadline so the endpoint answers within it even
// when every backing service hangs.
const probeTimeout = 5 * time.Second

// DBPinger is the probe surface of the database pool.
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// Pinger is satisfied by anything exposing a Ping probe, such as the Redis
// client wrapper used for rate limiting.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker answers liveness probes. In extended mode it also pings each
// backing service and reports the results.
type HealthChecker struct {
	db    DBPinger
	redis Pinger
	queue queue.JobQueue
}

// NewHealthChecker creates a health checker that only probes the database.
func NewHealthChecker(db DBPinger) *HealthChecker {
	return &HealthChecker{db: db}
}

// NewHealthCheckerWithDeps creates a health checker that also probes Redis
// and the job queue in extended mode.
func NewHealthCheckerWithDeps(db DBPinger, redis Pinger, jobQueue queue.JobQueue) *HealthChecker {
	return &HealthChecker{db: db, redis: redis, queue: jobQueue}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles /health and /healthz. With ?mode=extended each backing
// service is probed and reported under "checks"; any failed probe turns the
// response into a 503.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		checks, healthy := h.runChecks(r.Context())
		response.Checks = checks
		if !healthy {
			response.Status = "unhealthy"
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) runChecks(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	healthy := true
	checks := make(map[string]string, 3)
	record := func(name string, err error) {
		if err != nil {
			healthy = false
			checks[name] = "unhealthy: " + err.Error()
			return
		}
		checks[name] = "healthy"
	}

	if h.db == nil {
		checks["database"] = "not configured"
	} else {
		record("database", h.db.PingContext(ctx))
	}

	if h.redis == nil {
		checks["redis"] = "not configured"
	} else {
		record("redis", h.redis.Ping(ctx))
	}

	if h.queue == nil {
		checks["rabbitmq"] = "not configured"
	} else {
		record("rabbitmq", h.queue.HealthCheck(ctx))
	}

	return checks, healthy
}
