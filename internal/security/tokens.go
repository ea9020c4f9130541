package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for every verification failure. The wrapped
// detail (malformed, bad signature, expired) is for logging only and must
// not change how callers respond.
var ErrInvalidToken = errors.New("invalid token")

// SessionClaims holds the JWT claims of a session token: subject (user id),
// email, iat, and exp.
type SessionClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenService issues and verifies HS256 session tokens signed with a
// server-held secret. Verification is pure and safe for concurrent use.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	nowF   func() time.Time
}

// NewTokenService returns a TokenService signing with secret. issuer is set
// on claims and checked on verification. ttl bounds token validity.
func NewTokenService(secret []byte, issuer string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		nowF:   func() time.Time { return time.Now().UTC() },
	}
}

// TTL returns the configured token lifetime. The session cookie Max-Age must
// mirror it.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a session token for the given user. Expiry is now + TTL.
// Returns the token string and its expiration time.
func (s *TokenService) Issue(userID, email string) (token string, expiresAt time.Time, err error) {
	now := s.nowF()
	expiresAt = now.Add(s.ttl)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(s.secret)
	return token, expiresAt, err
}

// Verify parses and validates a session token (signature, exp, iss) and
// returns its claims. All failures collapse to ErrInvalidToken; use
// errors.Is. The error text distinguishes malformed tokens, signature
// mismatches, and expiry so the server can log the reason.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.nowF),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: expired", ErrInvalidToken)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
		default:
			return nil, fmt.Errorf("%w: malformed", ErrInvalidToken)
		}
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: malformed", ErrInvalidToken)
	}
	if claims.Issuer != s.issuer {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	return claims, nil
}
