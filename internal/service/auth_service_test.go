package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/repository"
)

// memoryAttempts is an in-memory AttemptCounter for tests.
type memoryAttempts struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMemoryAttempts() *memoryAttempts {
	return &memoryAttempts{counts: make(map[string]int64)}
}

func (m *memoryAttempts) Failures(_ context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[username], nil
}

func (m *memoryAttempts) RecordFailure(_ context.Context, username string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[username]++
	return m.counts[username], nil
}

func (m *memoryAttempts) Reset(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.counts, username)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "service-test-secret",
			JWTAlgorithm:          "HS256",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            bcrypt.MinCost,
			LoginMaxFailures:      3,
		},
	}
}

func newTestService(t *testing.T, deps AuthDependencies) *AuthService {
	t.Helper()
	if deps.Credentials == nil {
		hash, err := auth.HashSecret("pass1", bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash test secret: %v", err)
		}
		deps.Credentials = repository.NewStaticCredentialStore(map[string]string{"user1": hash})
	}
	svc, err := NewAuthService(testConfig(), deps)
	if err != nil {
		t.Fatalf("failed to build auth service: %v", err)
	}
	return svc
}

func TestAuthenticate(t *testing.T) {
	svc := newTestService(t, AuthDependencies{})
	ctx := context.Background()

	t.Run("registered pair succeeds", func(t *testing.T) {
		identity, err := svc.Authenticate(ctx, "user1", "pass1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if identity.Subject != "user1" {
			t.Errorf("expected subject user1, got %s", identity.Subject)
		}
	})

	t.Run("wrong secret and unknown user fail identically", func(t *testing.T) {
		_, wrongSecretErr := svc.Authenticate(ctx, "user1", "wrongpass")
		_, unknownUserErr := svc.Authenticate(ctx, "nobody", "pass1")

		if !errors.Is(wrongSecretErr, ErrInvalidCredentials) {
			t.Errorf("wrong secret: expected ErrInvalidCredentials, got %v", wrongSecretErr)
		}
		if !errors.Is(unknownUserErr, ErrInvalidCredentials) {
			t.Errorf("unknown user: expected ErrInvalidCredentials, got %v", unknownUserErr)
		}
		if wrongSecretErr.Error() != unknownUserErr.Error() {
			t.Errorf("failure modes are distinguishable: %q vs %q", wrongSecretErr, unknownUserErr)
		}
	})
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc := newTestService(t, AuthDependencies{})
	ctx := context.Background()

	token, expiresAt, err := svc.Login(ctx, "user1", "pass1")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" {
		t.Fatal("login returned empty token")
	}
	if !expiresAt.After(time.Now()) {
		t.Errorf("expiry %v is not in the future", expiresAt)
	}

	identity, err := svc.TokenManager().Verify(token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if identity.Subject != "user1" {
		t.Errorf("expected subject user1, got %s", identity.Subject)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newTestService(t, AuthDependencies{})
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "user1", "wrongpass")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
	if token != "" {
		t.Error("token issued despite failed login")
	}
}

func TestLoginThrottle(t *testing.T) {
	attempts := newMemoryAttempts()
	svc := newTestService(t, AuthDependencies{Attempts: attempts})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, _, err := svc.Login(ctx, "user1", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}

	// Threshold reached: even correct credentials are blocked now.
	if _, _, err := svc.Login(ctx, "user1", "pass1"); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}

	if err := attempts.Reset(ctx, "user1"); err != nil {
		t.Fatalf("failed to reset attempts: %v", err)
	}
	if _, _, err := svc.Login(ctx, "user1", "pass1"); err != nil {
		t.Fatalf("login after reset failed: %v", err)
	}

	// Success clears the counter.
	count, err := attempts.Failures(ctx, "user1")
	if err != nil {
		t.Fatalf("failed to read failures: %v", err)
	}
	if count != 0 {
		t.Errorf("expected failure count 0 after success, got %d", count)
	}
}

func TestLoginSucceedsWhenThrottleBackendUnreachable(t *testing.T) {
	// Same wiring as production, but against a port nothing listens on.
	// Valid credentials must still log in; the throttle fails open.
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	attempts := repository.NewLoginAttemptStore(client, time.Minute, zap.NewNop())

	svc := newTestService(t, AuthDependencies{Attempts: attempts})
	ctx := context.Background()

	token, _, err := svc.Login(ctx, "user1", "pass1")
	if err != nil {
		t.Fatalf("login failed during throttle backend outage: %v", err)
	}
	if token == "" {
		t.Fatal("login returned empty token")
	}

	if _, _, err := svc.Login(ctx, "user1", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginPublishesEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	var mu sync.Mutex
	seen := make(map[events.EventType]int)
	record := func(_ context.Context, event events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen[event.Type]++
		return nil
	}
	dispatcher.Subscribe(events.EventLoginSucceeded, record)
	dispatcher.Subscribe(events.EventLoginFailed, record)
	dispatcher.Subscribe(events.EventTokenIssued, record)

	svc := newTestService(t, AuthDependencies{Dispatcher: dispatcher, Attempts: newMemoryAttempts()})
	ctx := context.Background()

	if _, _, err := svc.Login(ctx, "user1", "wrongpass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(ctx, "user1", "pass1"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if seen[events.EventLoginFailed] != 1 {
		t.Errorf("expected 1 login_failed event, got %d", seen[events.EventLoginFailed])
	}
	if seen[events.EventLoginSucceeded] != 1 {
		t.Errorf("expected 1 login_succeeded event, got %d", seen[events.EventLoginSucceeded])
	}
	if seen[events.EventTokenIssued] != 1 {
		t.Errorf("expected 1 token_issued event, got %d", seen[events.EventTokenIssued])
	}
}
