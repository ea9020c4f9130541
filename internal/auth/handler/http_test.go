package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nutriflow/auth/internal/auth/service"
	"nutriflow/auth/internal/policy/engine"
	"nutriflow/auth/internal/ratelimit"
	"nutriflow/auth/internal/security"
	userdomain "nutriflow/auth/internal/user/domain"
	userrepo "nutriflow/auth/internal/user/repository"
)

type memUserRepo struct {
	mu      sync.Mutex
	byID    map[string]*userdomain.User
	byEmail map[string]*userdomain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byID:    make(map[string]*userdomain.User),
		byEmail: make(map[string]*userdomain.User),
	}
}

func (r *memUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byEmail[email], nil
}

func (r *memUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[u.Email]; ok {
		return userrepo.ErrDuplicateEmail
	}
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u
	return nil
}

type denyPolicy struct{}

func (denyPolicy) EvaluateAccess(ctx context.Context, user *userdomain.User) (engine.AccessResult, error) {
	return engine.AccessResult{Allow: false, Reason: "account disabled"}, nil
}

func newTestHandler(t *testing.T, limiter ratelimit.Limiter, policy engine.Evaluator) *Handler {
	t.Helper()
	hasher := security.NewHasher(4)
	tokens := security.NewTokenService([]byte("test-secret"), "test-issuer", time.Hour)
	svc := service.NewAuthService(newMemUserRepo(), hasher, tokens, limiter, policy, nil)
	return NewHandler(svc, false)
}

func newServer(h *Handler) *httptest.Server {
	mux := http.NewServeMux()
	h.Routes(mux)
	return httptest.NewServer(mux)
}

func postJSON(t *testing.T, client *http.Client, url, body string) *http.Response {
	t.Helper()
	resp, err := client.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", resp.StatusCode)
	}
	var body registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if body.ID == "" || body.Name != "Ana" || body.Email != "ana@x.com" {
		t.Errorf("register body = %+v", body)
	}

	// Second registration with the same email conflicts.
	resp2 := postJSON(t, srv.Client(), srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"other"}`)
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusConflict {
		t.Errorf("duplicate register status = %d, want 409", resp2.StatusCode)
	}
}

func TestRegister_InvalidBody(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/register", `{not json`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("invalid body status = %d, want 400", resp.StatusCode)
	}
}

func TestLogin(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()

	// Wrong password: 401 and no cookie.
	resp = postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"ana@x.com","password":"wrong"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want 401", resp.StatusCode)
	}
	if sessionCookie(resp) != nil {
		t.Error("failed login must not set a session cookie")
	}

	// Correct password: 200 and an HttpOnly cookie mirroring the token TTL.
	resp = postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, want 200", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("login should set the session cookie")
	}
	if !cookie.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}
	if cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("session cookie SameSite = %v, want Lax", cookie.SameSite)
	}
	if cookie.Path != "/" {
		t.Errorf("session cookie Path = %q, want /", cookie.Path)
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("session cookie MaxAge = %d, want 3600", cookie.MaxAge)
	}
	if cookie.Value == "" {
		t.Error("session cookie value should hold the token")
	}
}

func TestLogin_RateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	defer limiter.Close()
	srv := newServer(newTestHandler(t, limiter, nil))
	defer srv.Close()

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()

	for i := 0; i < 2; i++ {
		resp = postJSON(t, srv.Client(), srv.URL+"/auth/login",
			`{"email":"ana@x.com","password":"wrong"}`)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i+1, resp.StatusCode)
		}
	}

	resp = postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("throttled status = %d, want 429", resp.StatusCode)
	}
}

func TestValidate(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	// No cookie: 401.
	resp, err := srv.Client().Get(srv.URL + "/auth/validate")
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("validate without cookie status = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, srv.Client(), srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	resp = postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("login should set the session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/auth/validate", nil)
	req.AddCookie(cookie)
	resp, err = srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate status = %d, want 200", resp.StatusCode)
	}
	var body validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode validate response: %v", err)
	}
	if body.Email != "ana@x.com" || body.SubjectID == "" {
		t.Errorf("validate body = %+v", body)
	}
	if !body.ExpiresAt.After(body.IssuedAt) {
		t.Error("expiresAt should be strictly after issuedAt")
	}
}

func TestValidate_GarbageCookie(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/auth/validate", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "garbage"})
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("garbage cookie status = %d, want 401", resp.StatusCode)
	}
}

func TestValidate_PolicyDenied(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, denyPolicy{}))
	defer srv.Close()

	resp := postJSON(t, srv.Client(), srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	resp = postJSON(t, srv.Client(), srv.URL+"/auth/login",
		`{"email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("login should set the session cookie")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/auth/validate", nil)
	req.AddCookie(cookie)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("policy denied status = %d, want 403", resp.StatusCode)
	}
}

func TestLogout(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	// Logout without a session still succeeds.
	resp := postJSON(t, srv.Client(), srv.URL+"/auth/logout", ``)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("logout should clear the session cookie")
	}
	if cookie.Value != "" || cookie.MaxAge >= 0 {
		t.Errorf("logout cookie = %+v, want cleared", cookie)
	}
}

func TestLoginLogoutValidateFlow(t *testing.T) {
	srv := newServer(newTestHandler(t, nil, nil))
	defer srv.Close()

	// Use a cookie jar so the flow matches a browser.
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := srv.Client()
	client.Jar = jar

	resp := postJSON(t, client, srv.URL+"/auth/register",
		`{"name":"Ana","email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()
	resp = postJSON(t, client, srv.URL+"/auth/login",
		`{"email":"ana@x.com","password":"secret1"}`)
	resp.Body.Close()

	resp, err = client.Get(srv.URL + "/auth/validate")
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate after login status = %d, want 200", resp.StatusCode)
	}

	resp = postJSON(t, client, srv.URL+"/auth/logout", ``)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", resp.StatusCode)
	}

	resp, err = client.Get(srv.URL + "/auth/validate")
	if err != nil {
		t.Fatalf("GET validate: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("validate after logout status = %d, want 401", resp.StatusCode)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	if ip := ClientIP(r); ip != "10.0.0.1" {
		t.Errorf("ClientIP = %q, want 10.0.0.1", ip)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if ip := ClientIP(r); ip != "203.0.113.7" {
		t.Errorf("ClientIP with X-Forwarded-For = %q, want 203.0.113.7", ip)
	}
}
