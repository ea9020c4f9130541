// Package handler exposes the auth service over HTTP. Request bodies are
// decoded into tagged structs at the boundary; the service never sees raw
// payloads. Sentinel errors from the service map to status codes here, and
// response bodies carry no internal detail.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"nutriflow/auth/internal/auth/service"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type validateResponse struct {
	SubjectID string    `json:"subjectId"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Handler serves the /auth endpoints.
type Handler struct {
	svc           *service.AuthService
	secureCookies bool
}

// NewHandler returns an auth HTTP handler. secureCookies marks session
// cookies Secure (production only).
func NewHandler(svc *service.AuthService, secureCookies bool) *Handler {
	return &Handler{svc: svc, secureCookies: secureCookies}
}

// Register handles POST /auth/register: 201 with the created account,
// 409 on duplicate email.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.svc.Register(withClientIP(r), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailAlreadyRegistered):
			writeError(w, http.StatusConflict, "email already registered")
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			log.Printf("auth: register failed: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{ID: u.ID, Name: u.Name, Email: u.Email})
}

// Login handles POST /auth/login: 200 and sets the session cookie,
// 401 on bad credentials, 429 when rate limited. The token travels only in
// the cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.svc.Login(withClientIP(r), clientIP(r), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, "too many login attempts")
		case errors.Is(err, service.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			log.Printf("auth: login failed: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	setSessionCookie(w, result.Token, h.svc.TokenTTL(), h.secureCookies)
	writeJSON(w, http.StatusOK, loginResponse{ID: result.UserID, Email: result.Email})
}

// Validate handles GET /auth/validate: 200 with identity claims, 401 when the
// cookie is absent or the token invalid, 403 when policy denies the account.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	identity, err := h.svc.Validate(withClientIP(r), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			writeError(w, http.StatusUnauthorized, "unauthorized")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "forbidden")
		default:
			log.Printf("auth: validate failed: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{
		SubjectID: identity.SubjectID,
		Email:     identity.Email,
		IssuedAt:  identity.IssuedAt,
		ExpiresAt: identity.ExpiresAt,
	})
}

// Logout handles POST /auth/logout: always 200, clears the session cookie.
// There is no server-side revocation state to fail on.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		token = cookie.Value
	}
	h.svc.Logout(withClientIP(r), token)
	clearSessionCookie(w, h.secureCookies)
	writeJSON(w, http.StatusOK, messageResponse{Message: "logged out"})
}

// Routes registers the auth endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/register", h.Register)
	mux.HandleFunc("POST /auth/login", h.Login)
	mux.HandleFunc("GET /auth/validate", h.Validate)
	mux.HandleFunc("POST /auth/logout", h.Logout)
}

// ClientIP returns the client IP for a request: the first X-Forwarded-For
// entry when present (reverse proxy), else the remote address host. Used as
// the login rate-limit key and for audit entries.
func ClientIP(r *http.Request) string {
	return clientIP(r)
}

type clientIPKey struct{}

// ClientIPFromContext returns the client IP stored by the auth handlers, or
// "unknown". Wire it as the audit logger's IP extractor.
func ClientIPFromContext(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return "unknown"
}

// withClientIP returns r's context with the client IP attached so audit
// entries written deeper in the call chain can record it.
func withClientIP(r *http.Request) context.Context {
	return context.WithValue(r.Context(), clientIPKey{}, clientIP(r))
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("auth: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// isValidationError reports whether the error came from input validation
// rather than infrastructure. Service validation errors are plain errors
// with stable text.
func isValidationError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "required") || strings.Contains(msg, "invalid email")
}
