package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// Verification failure kinds. These are for internal diagnostics only;
// the HTTP boundary collapses all of them into a single unauthorized
// response so callers cannot probe which check failed.
var (
	ErrMissingToken   = errors.New("missing bearer token")
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("token signature mismatch")
	ErrTokenExpired   = errors.New("token expired")
	ErrMissingSubject = errors.New("token subject missing")
)

// TokenManager issues and verifies signed bearer tokens. The signing key,
// algorithm and TTL are fixed at construction and never change afterwards,
// so a single instance is safe for concurrent use.
type TokenManager struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
}

// NewTokenManager builds a manager for the given HMAC algorithm identifier
// (HS256, HS384 or HS512).
func NewTokenManager(secret, algorithm string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("signing secret is required")
	}
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("algorithm %q is not an HMAC method", algorithm)
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TokenManager{secret: []byte(secret), method: method, ttl: ttl}, nil
}

// Claims describes the token payload.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ClaimSeed carries the caller-supplied portion of the claims; expiry and
// token ID are computed at issue time.
type ClaimSeed struct {
	Subject string
	Name    string
}

// Issue builds and signs a token for the seed. A seed without a subject is
// a programming error, not a condition to report to clients.
func (tm *TokenManager) Issue(seed ClaimSeed) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tm.ttl)
	claims := &Claims{
		Name: seed.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   seed.Subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(tm.method, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// Verify checks structure, signature and expiry in that order and returns
// the identity carried by the token. The signature is verified before any
// claim is interpreted, so a tampered payload is rejected as a signature
// mismatch rather than decoded.
func (tm *TokenManager) Verify(tokenStr string) (*domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{tm.method.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrBadSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrMalformedToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}
	return &domain.Identity{Subject: claims.Subject}, nil
}
