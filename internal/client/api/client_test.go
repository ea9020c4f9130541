package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newStatusServer(status int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
}

func mustNewClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(baseURL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClassification(t *testing.T) {
	testCases := []struct {
		status int
		want   Kind
	}{
		{401, KindUnauthorized},
		{403, KindForbidden},
		{500, KindServerError},
		{503, KindUnavailable},
		{404, KindUnknown},
		{502, KindUnknown},
	}

	for _, tc := range testCases {
		srv := newStatusServer(tc.status)
		c := mustNewClient(t, srv.URL)

		_, err := c.Validate(context.Background())
		if got := ErrorKind(err); got != tc.want {
			t.Errorf("status %d: kind = %q, want %q", tc.status, got, tc.want)
		}
		srv.Close()
	}
}

func TestClassification_Network(t *testing.T) {
	srv := newStatusServer(http.StatusOK)
	url := srv.URL
	srv.Close() // connection refused from here on

	c := mustNewClient(t, url)
	_, err := c.Validate(context.Background())
	if got := ErrorKind(err); got != KindNetwork {
		t.Errorf("kind = %q, want %q", got, KindNetwork)
	}
}

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/register" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(RegisteredUser{ID: "u1", Name: req.Name, Email: req.Email})
	}))
	defer srv.Close()

	c := mustNewClient(t, srv.URL)
	user, err := c.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.ID != "u1" || user.Email != "ana@x.com" {
		t.Errorf("user = %+v", user)
	}
}

func TestRegister_Conflict(t *testing.T) {
	srv := newStatusServer(http.StatusConflict)
	defer srv.Close()

	c := mustNewClient(t, srv.URL)
	_, err := c.Register(context.Background(), "Ana", "ana@x.com", "secret1")
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("Register conflict: want *Error, got %v", err)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("Status = %d, want 409", apiErr.Status)
	}
}

func TestLoginCookieFlowsToValidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "tok", Path: "/"})
			w.WriteHeader(http.StatusOK)
		case "/auth/validate":
			cookie, err := r.Cookie("access_token")
			if err != nil || cookie.Value != "tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(Identity{
				SubjectID: "u1",
				Email:     "ana@x.com",
				IssuedAt:  time.Now(),
				ExpiresAt: time.Now().Add(time.Hour),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := mustNewClient(t, srv.URL)
	ctx := context.Background()

	// Without login the cookie is absent.
	if _, err := c.Validate(ctx); ErrorKind(err) != KindUnauthorized {
		t.Fatalf("validate before login: want unauthorized, got %v", err)
	}

	if err := c.Login(ctx, "ana@x.com", "secret1"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	identity, err := c.Validate(ctx)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if identity.SubjectID != "u1" || identity.Email != "ana@x.com" {
		t.Errorf("identity = %+v", identity)
	}
}

func TestErrorKind(t *testing.T) {
	if got := ErrorKind(nil); got != "" {
		t.Errorf("ErrorKind(nil) = %q, want empty", got)
	}
	if got := ErrorKind(errors.New("plain")); got != KindUnknown {
		t.Errorf("ErrorKind(plain) = %q, want unknown", got)
	}
	if got := ErrorKind(&Error{Kind: KindForbidden, Status: 403}); got != KindForbidden {
		t.Errorf("ErrorKind = %q, want forbidden", got)
	}
}
