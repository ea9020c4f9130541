package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nutriflow/auth/internal/audit"
	"nutriflow/auth/internal/policy/engine"
	"nutriflow/auth/internal/ratelimit"
	"nutriflow/auth/internal/security"
	userdomain "nutriflow/auth/internal/user/domain"
	userrepo "nutriflow/auth/internal/user/repository"
)

// Sentinel errors for the auth service; the handler maps them to HTTP status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrTooManyAttempts        = errors.New("too many login attempts")
	ErrInvalidToken           = security.ErrInvalidToken
	ErrForbidden              = errors.New("access forbidden")
)

// RegisteredUser is the public shape of a newly created account. The password
// hash never leaves the service.
type RegisteredUser struct {
	ID    string
	Name  string
	Email string
}

// LoginResult holds the outcome of a successful login. The handler moves the
// token into the session cookie; it is never written to a response body.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	UserID    string
	Email     string
}

// Identity is the validated result of a session token: who the caller is and
// the window the token is valid for.
type Identity struct {
	SubjectID string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UserRepo is the minimal user repository needed by the auth service.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
}

// AuthService implements register, login, validate, and logout.
type AuthService struct {
	userRepo UserRepo
	hasher   *security.Hasher
	tokens   *security.TokenService
	limiter  ratelimit.Limiter
	policy   engine.Evaluator
	auditor  audit.AuditLogger
}

// NewAuthService returns an AuthService with the given dependencies.
// limiter, policy, and auditor may be nil; the corresponding checks are then
// skipped (tests and tooling).
func NewAuthService(
	userRepo UserRepo,
	hasher *security.Hasher,
	tokens *security.TokenService,
	limiter ratelimit.Limiter,
	policy engine.Evaluator,
	auditor audit.AuditLogger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		limiter:  limiter,
		policy:   policy,
		auditor:  auditor,
	}
}

// TokenTTL returns the lifetime of issued session tokens. The session cookie
// Max-Age mirrors it.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// Register creates a user with the given email and password. Duplicate emails
// are rejected by the database unique constraint, so two concurrent
// registrations with the same email yield exactly one success. Returns the
// created account without its password hash.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*RegisteredUser, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, errors.New("email is required")
	}
	if password == "" {
		return nil, errors.New("password is required")
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		Status:       userdomain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, userrepo.ErrDuplicateEmail) {
			s.logEvent(ctx, "", email, audit.ActionRegister, audit.OutcomeDenied, "duplicate email")
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, err
	}
	s.logEvent(ctx, user.ID, email, audit.ActionRegister, audit.OutcomeSuccess, "")
	return &RegisteredUser{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

// Login authenticates with email/password and returns a session token.
// The rate limiter is consulted first, keyed by limiterKey (client IP);
// throttled attempts never touch credentials. Unknown email and wrong
// password both return ErrInvalidCredentials so callers cannot probe which
// emails are registered.
func (s *AuthService) Login(ctx context.Context, limiterKey, email, password string) (*LoginResult, error) {
	if s.limiter != nil && !s.limiter.Allow(limiterKey) {
		s.logEvent(ctx, "", email, audit.ActionLogin, audit.OutcomeThrottled, "")
		return nil, ErrTooManyAttempts
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != userdomain.UserStatusActive {
		s.logEvent(ctx, "", email, audit.ActionLogin, audit.OutcomeDenied, "invalid credentials")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		s.logEvent(ctx, user.ID, email, audit.ActionLogin, audit.OutcomeDenied, "invalid credentials")
		return nil, ErrInvalidCredentials
	}
	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, user.ID, email, audit.ActionLogin, audit.OutcomeSuccess, "")
	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Email:     user.Email,
	}, nil
}

// Validate verifies a session token and returns the caller's identity.
// Returns ErrInvalidToken for missing/malformed/expired tokens and for tokens
// whose subject no longer exists; returns ErrForbidden when the account-access
// policy denies the user (e.g. account disabled after the token was issued).
func (s *AuthService) Validate(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}
	if s.policy != nil {
		result, err := s.policy.EvaluateAccess(ctx, user)
		if err != nil {
			return nil, err
		}
		if !result.Allow {
			s.logEvent(ctx, user.ID, user.Email, audit.ActionValidate, audit.OutcomeDenied, result.Reason)
			return nil, fmt.Errorf("%w: %s", ErrForbidden, result.Reason)
		}
	}
	return &Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout records the logout for auditing. Token invalidation is expiry-only;
// the server holds no revocation state, so logout never fails regardless of
// whether the presented token is valid.
func (s *AuthService) Logout(ctx context.Context, token string) {
	actorID, email := "", ""
	if claims, err := s.tokens.Verify(token); err == nil {
		actorID, email = claims.Subject, claims.Email
	}
	s.logEvent(ctx, actorID, email, audit.ActionLogout, audit.OutcomeSuccess, "")
}

func (s *AuthService) logEvent(ctx context.Context, actorID, email, action, outcome, detail string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, actorID, email, action, outcome, detail)
}
