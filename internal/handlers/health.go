// Package handlers serves the platform health endpoints.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/navikt/dp-datalaster-inntekt/common/httputil"
	"github.com/navikt/dp-datalaster-inntekt/common/messaging"
	"github.com/navikt/dp-datalaster-inntekt/internal/topology"
)

// Processor reports on the packet topology.
type Processor interface {
	Stats() topology.Stats
	Running() bool
}

// DLQStats reports on the dead-letter stream.
type DLQStats interface {
	Stats(ctx context.Context) map[string]interface{}
}

// HealthHandler answers liveness, readiness and status probes.
type HealthHandler struct {
	service   string
	broker    messaging.Client
	processor Processor
	dlq       DLQStats
	started   time.Time
}

func NewHealthHandler(service string, broker messaging.Client, processor Processor, dlq DLQStats) *HealthHandler {
	return &HealthHandler{
		service:   service,
		broker:    broker,
		processor: processor,
		dlq:       dlq,
		started:   time.Now(),
	}
}

// IsAlive reports that the process is up.
func (h *HealthHandler) IsAlive(w http.ResponseWriter, r *http.Request) {
	httputil.WriteText(w, http.StatusOK, "ALIVE")
}

// IsReady reports ready once the broker is reachable and every partition is consumed.
func (h *HealthHandler) IsReady(w http.ResponseWriter, r *http.Request) {
	broker := messaging.CheckClientHealth(r.Context(), h.broker)
	if !broker.Connected || h.processor == nil || !h.processor.Running() {
		httputil.WriteText(w, http.StatusServiceUnavailable, "NOT READY")
		return
	}
	httputil.WriteText(w, http.StatusOK, "READY")
}

type statusResponse struct {
	Status  string                 `json:"status"`
	Service string                 `json:"service"`
	Uptime  string                 `json:"uptime"`
	Broker  messaging.HealthStatus `json:"broker"`
	Stats   *topology.Stats        `json:"stats,omitempty"`
	DLQ     map[string]interface{} `json:"dlq,omitempty"`
}

// Healthz returns processor counters and DLQ state as JSON.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:  "healthy",
		Service: h.service,
		Uptime:  time.Since(h.started).Truncate(time.Second).String(),
		Broker:  messaging.CheckClientHealth(r.Context(), h.broker),
	}
	if h.processor != nil {
		stats := h.processor.Stats()
		resp.Stats = &stats
	}
	if h.dlq != nil {
		resp.DLQ = h.dlq.Stats(r.Context())
	}

	code := http.StatusOK
	if !resp.Broker.Connected {
		resp.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	httputil.WriteJSON(w, code, resp)
}
