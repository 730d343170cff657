package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.App.Addr() == "" {
		t.Error("bind address is empty")
	}
	if cfg.Auth.JWTAlgorithm != "HS256" {
		t.Errorf("expected default algorithm HS256, got %s", cfg.Auth.JWTAlgorithm)
	}
	if got := cfg.Auth.AccessTokenTTL(); got != 30*time.Minute {
		t.Errorf("expected default TTL 30m, got %v", got)
	}
	if cfg.Auth.LoginFailureWindow() <= 0 {
		t.Error("failure window must be positive")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTH_JWT_ALGORITHM", "HS512")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL_MINUTES", "5")
	t.Setenv("AUTH_SEED_USERS", "user1:pass1, user2:pass2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Auth.JWTAlgorithm != "HS512" {
		t.Errorf("expected HS512, got %s", cfg.Auth.JWTAlgorithm)
	}
	if got := cfg.Auth.AccessTokenTTL(); got != 5*time.Minute {
		t.Errorf("expected TTL 5m, got %v", got)
	}
	if len(cfg.Auth.SeedUsers) != 2 || cfg.Auth.SeedUsers[1] != "user2:pass2" {
		t.Errorf("unexpected seed users: %v", cfg.Auth.SeedUsers)
	}
}
