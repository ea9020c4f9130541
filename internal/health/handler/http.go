// Package handler serves /healthz for Kubernetes, load balancers, and CI.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker reports whether the policy engine is operational
// (e.g. the OPA evaluator's self-check).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handler serves readiness checks. Nil dependencies are skipped, so the
// handler works in partial wiring (tests, tooling).
type Handler struct {
	pinger  Pinger
	checker PolicyChecker
}

// NewHandler returns a health handler checking the given dependencies.
func NewHandler(pinger Pinger, checker PolicyChecker) *Handler {
	return &Handler{pinger: pinger, checker: checker}
}

// Check handles GET /healthz: 200 when every wired dependency passes,
// 503 otherwise. The body lists per-dependency results.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: map[string]string{}}
	status := http.StatusOK

	if h.pinger != nil {
		if err := h.pinger.PingContext(ctx); err != nil {
			resp.Checks["database"] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["database"] = "ok"
		}
	}
	if h.checker != nil {
		if err := h.checker.HealthCheck(ctx); err != nil {
			resp.Checks["policy"] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["policy"] = "ok"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Routes registers the health endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Check)
}
