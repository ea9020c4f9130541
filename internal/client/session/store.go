// Package session holds the client-side session state machine. It is the
// single source of truth for "who is logged in, and why not": raw HTTP
// outcomes from the auth API are reconciled into one consistent view.
package session

import (
	"context"
	"sync"

	"nutriflow/auth/internal/client/api"
)

// API is the slice of the auth client the store needs.
type API interface {
	Validate(ctx context.Context) (*api.Identity, error)
	Logout(ctx context.Context) error
}

// State is a snapshot of the session. IsAuthenticated is derived from User
// at snapshot time and never stored separately; a second authentication flag
// could drift from User and is therefore forbidden.
type State struct {
	User            *api.Identity
	IsAuthenticated bool
	IsLoading       bool
	Err             *api.Error
}

// Store reconciles auth API results into session state. Safe for concurrent
// use; overlapping Revalidate calls are serialized by a generation counter so
// a stale in-flight result can never overwrite a newer one.
type Store struct {
	mu      sync.Mutex
	client  API
	user    *api.Identity
	loading bool
	err     *api.Error
	gen     uint64
}

// NewStore returns a Store in the booting state: loading until the first
// Revalidate settles.
func NewStore(client API) *Store {
	return &Store{client: client, loading: true}
}

// State returns a snapshot of the current session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		User:            s.user,
		IsAuthenticated: s.user != nil,
		IsLoading:       s.loading,
		Err:             s.err,
	}
}

// Revalidate asks the backend who the caller is and reconciles the result:
//
//   - success: the returned identity becomes the user, any error clears.
//   - unauthorized (401): the caller is signed out. Expected, not an error:
//     user clears and no error is surfaced.
//   - any other failure (forbidden, server, unavailable, network, unknown):
//     surfaced as a visible error, but the current user is kept — a transient
//     infrastructure failure must not evict a live session.
//
// If a newer Revalidate or Logout settles first, this result is stale and is
// discarded.
func (s *Store) Revalidate(ctx context.Context) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.loading = true
	s.mu.Unlock()

	identity, err := s.client.Validate(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		// A newer call settled while this one was in flight.
		return
	}
	s.loading = false
	if err == nil {
		s.user = identity
		s.err = nil
		return
	}
	if api.ErrorKind(err) == api.KindUnauthorized {
		s.user = nil
		s.err = nil
		return
	}
	s.err = asAPIError(err)
}

// Logout ends the session. The backend call is best-effort: local state
// always clears, even when the call fails, so the client can never be stuck
// signed-in. A non-401 failure is still surfaced as a warning.
func (s *Store) Logout(ctx context.Context) {
	err := s.client.Logout(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Invalidate in-flight revalidations so they cannot resurrect the user.
	s.gen++
	s.loading = false
	s.user = nil
	s.err = nil
	if err != nil && api.ErrorKind(err) != api.KindUnauthorized {
		s.err = asAPIError(err)
	}
}

func asAPIError(err error) *api.Error {
	if apiErr, ok := err.(*api.Error); ok {
		return apiErr
	}
	return &api.Error{Kind: api.KindUnknown}
}
