package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(ctx context.Context) error { return f.err }

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

func doCheck(t *testing.T, h *Handler) (*httptest.ResponseRecorder, healthResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.Check(w, r)
	var body healthResponse
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	return w, body
}

func TestCheck_AllHealthy(t *testing.T) {
	h := NewHandler(fakePinger{}, fakeChecker{})
	w, body := doCheck(t, h)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if body.Status != "ok" {
		t.Errorf("body status = %q, want ok", body.Status)
	}
	if body.Checks["database"] != "ok" || body.Checks["policy"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestCheck_DatabaseDown(t *testing.T) {
	h := NewHandler(fakePinger{err: errors.New("connection refused")}, fakeChecker{})
	w, body := doCheck(t, h)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if body.Checks["database"] != "unavailable" {
		t.Errorf("database check = %q, want unavailable", body.Checks["database"])
	}
	if body.Checks["policy"] != "ok" {
		t.Errorf("policy check = %q, want ok", body.Checks["policy"])
	}
}

func TestCheck_PolicyDown(t *testing.T) {
	h := NewHandler(fakePinger{}, fakeChecker{err: errors.New("compile error")})
	w, body := doCheck(t, h)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if body.Status != "degraded" {
		t.Errorf("body status = %q, want degraded", body.Status)
	}
}

func TestCheck_NilDependenciesSkipped(t *testing.T) {
	h := NewHandler(nil, nil)
	w, body := doCheck(t, h)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(body.Checks) != 0 {
		t.Errorf("checks = %v, want empty", body.Checks)
	}
}
