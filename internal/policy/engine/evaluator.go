package engine

import (
	"context"

	userdomain "nutriflow/auth/internal/user/domain"
)

// AccessResult holds the result of account-access policy evaluation.
type AccessResult struct {
	Allow  bool
	Reason string
}

// Evaluator evaluates account-access policies using OPA or other engines.
type Evaluator interface {
	// EvaluateAccess decides whether the authenticated user may access their
	// account. Called on session validation after the token check passes.
	EvaluateAccess(ctx context.Context, user *userdomain.User) (AccessResult, error)
}
