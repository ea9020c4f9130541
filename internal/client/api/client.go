// Package api is the browser-side client for the auth endpoints. The session
// cookie lives in the client's jar; tokens are never handled directly. All
// failures come back as classified *Error values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"
)

// DefaultTimeout bounds every call so a hung backend cannot suspend the
// session store forever.
const DefaultTimeout = 10 * time.Second

// Identity is the validated result of the session: the claims returned by
// the validate endpoint.
type Identity struct {
	SubjectID string    `json:"subjectId"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RegisteredUser is the account returned by register.
type RegisteredUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Client calls the auth endpoints. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a Client for the auth API at baseURL. The client keeps a
// cookie jar so the HTTP-only session cookie flows automatically, and bounds
// every request with DefaultTimeout.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: DefaultTimeout,
		},
	}, nil
}

// Register creates an account. A duplicate email comes back as KindUnknown
// (HTTP 409); the caller decides how to surface it.
func (c *Client) Register(ctx context.Context, name, email, password string) (*RegisteredUser, error) {
	var user RegisteredUser
	err := c.post(ctx, "/auth/register", registerRequest{Name: name, Email: email, Password: password},
		http.StatusCreated, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the session cookie in the jar. The response
// body is discarded; identity comes from a follow-up Validate so the client
// never trusts client-constructed state.
func (c *Client) Login(ctx context.Context, email, password string) error {
	return c.post(ctx, "/auth/login", loginRequest{Email: email, Password: password},
		http.StatusOK, nil)
}

// Validate returns the identity for the current session cookie.
func (c *Client) Validate(ctx context.Context) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/validate", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, networkError()
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}
	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, &Error{Kind: KindUnknown, Status: resp.StatusCode}
	}
	return &identity, nil
}

// Logout ends the session; the server clears the cookie.
func (c *Client) Logout(ctx context.Context) error {
	return c.post(ctx, "/auth/logout", struct{}{}, http.StatusOK, nil)
}

func (c *Client) post(ctx context.Context, path string, body any, wantStatus int, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return networkError()
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		return statusError(resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &Error{Kind: KindUnknown, Status: resp.StatusCode}
		}
	}
	return nil
}
