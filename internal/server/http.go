// Package server wires the HTTP handlers into a single mux with the shared
// middleware stack.
package server

import (
	"net/http"

	authhandler "nutriflow/auth/internal/auth/handler"
	authservice "nutriflow/auth/internal/auth/service"
	healthhandler "nutriflow/auth/internal/health/handler"
	"nutriflow/auth/internal/telemetry"
)

// Deps holds the dependencies for HTTP routes.
type Deps struct {
	// Auth is the auth service for register/login/validate/logout.
	Auth *authservice.AuthService
	// SecureCookies marks session cookies Secure. Set in production only.
	SecureCookies bool
	// HealthPinger is used by /healthz for readiness (e.g. *sql.DB). If nil, the DB ping is skipped.
	HealthPinger healthhandler.Pinger
	// HealthPolicyChecker is used by /healthz for readiness (e.g. OPA evaluator). If nil, the policy check is skipped.
	HealthPolicyChecker healthhandler.PolicyChecker
	// Emitter receives one telemetry event per request. If nil, no events are emitted.
	Emitter telemetry.EventEmitter
}

// NewHandler builds the full HTTP handler: all routes wrapped in the
// recover and telemetry middleware.
//
// Route → handler mapping:
//   - /auth/*   → internal/auth/handler
//   - /healthz  → internal/health/handler
func NewHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()

	authhandler.NewHandler(deps.Auth, deps.SecureCookies).Routes(mux)
	healthhandler.NewHandler(deps.HealthPinger, deps.HealthPolicyChecker).Routes(mux)

	var h http.Handler = mux
	h = Telemetry(deps.Emitter)(h)
	h = Tracing(h)
	h = Recover(h)
	return h
}
