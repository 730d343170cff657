package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// ErrInvalidCredentials reports a failed login. Unknown usernames and wrong
// secrets both produce this exact error so callers cannot tell which
// usernames exist.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrTooManyAttempts reports that the username hit the failure throttle.
var ErrTooManyAttempts = errors.New("too many failed login attempts")

// AttemptCounter tracks consecutive login failures per username.
type AttemptCounter interface {
	Failures(ctx context.Context, username string) (int64, error)
	RecordFailure(ctx context.Context, username string) (int64, error)
	Reset(ctx context.Context, username string) error
}

// AuthService coordinates credential verification and token issuance.
type AuthService struct {
	credentials repository.CredentialStore
	attempts    AttemptCounter
	tokenMgr    *auth.TokenManager
	dispatcher  events.Dispatcher
	maxFailures int64
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	Credentials repository.CredentialStore
	Attempts    AttemptCounter
	Dispatcher  events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAlgorithm, cfg.Auth.AccessTokenTTL())
	if err != nil {
		return nil, err
	}
	maxFailures := int64(cfg.Auth.LoginMaxFailures)
	if maxFailures <= 0 {
		maxFailures = 5
	}
	return &AuthService{
		credentials: deps.Credentials,
		attempts:    deps.Attempts,
		tokenMgr:    tokenMgr,
		dispatcher:  deps.Dispatcher,
		maxFailures: maxFailures,
	}, nil
}

// Authenticate resolves a username/secret pair to an identity. Lookup
// misses burn a dummy hash comparison so their timing matches mismatches.
func (s *AuthService) Authenticate(ctx context.Context, username, secret string) (*domain.Identity, error) {
	cred, err := s.credentials.Lookup(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNoCredential) {
			auth.CompareDummy(secret)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CompareSecret(cred.Secret, secret); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &domain.Identity{Subject: cred.Username}, nil
}

// Login authenticates and issues an access token. Failed attempts feed the
// per-username throttle; a success resets it.
func (s *AuthService) Login(ctx context.Context, username, secret string) (string, time.Time, error) {
	if s.attempts != nil {
		failures, err := s.attempts.Failures(ctx, username)
		if err != nil {
			return "", time.Time{}, err
		}
		if failures >= s.maxFailures {
			s.publish(ctx, events.EventLoginThrottled, username, events.LoginFailedPayload{Failures: failures})
			return "", time.Time{}, ErrTooManyAttempts
		}
	}

	identity, err := s.Authenticate(ctx, username, secret)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			var count int64
			if s.attempts != nil {
				recorded, recordErr := s.attempts.RecordFailure(ctx, username)
				if recordErr != nil {
					return "", time.Time{}, recordErr
				}
				count = recorded
			}
			s.publish(ctx, events.EventLoginFailed, username, events.LoginFailedPayload{Failures: count})
		}
		return "", time.Time{}, err
	}

	token, expiresAt, err := s.tokenMgr.Issue(auth.ClaimSeed{Subject: identity.Subject})
	if err != nil {
		return "", time.Time{}, err
	}

	if s.attempts != nil {
		if err := s.attempts.Reset(ctx, username); err != nil {
			return "", time.Time{}, err
		}
	}
	s.publish(ctx, events.EventLoginSucceeded, identity.Subject, nil)
	s.publish(ctx, events.EventTokenIssued, identity.Subject, events.TokenIssuedPayload{ExpiresAt: expiresAt})

	return token, expiresAt, nil
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, subject string, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Subject:   subject,
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
