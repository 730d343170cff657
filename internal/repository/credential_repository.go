package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/auth-service/internal/domain"
)

// ErrNoCredential reports that a username has no stored credential. Callers
// must treat it as a normal lookup miss, never as a caller-visible failure
// distinct from a secret mismatch.
var ErrNoCredential = errors.New("credential not found")

// CredentialStore answers credential lookups by username.
type CredentialStore interface {
	Lookup(ctx context.Context, username string) (*domain.Credential, error)
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialStore {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Lookup(ctx context.Context, username string) (*domain.Credential, error) {
	const query = `
        SELECT username, secret_hash, created_at, updated_at
        FROM credentials WHERE username=$1`

	var cred domain.Credential
	if err := r.pool.QueryRow(ctx, query, username).Scan(
		&cred.Username,
		&cred.Secret,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoCredential
		}
		return nil, err
	}
	return &cred, nil
}

// StaticCredentialStore is an in-memory, read-only credential table. It
// backs local development without a database and the test suites.
type StaticCredentialStore struct {
	mu    sync.RWMutex
	creds map[string]domain.Credential
}

// NewStaticCredentialStore builds a store from username->hash pairs.
func NewStaticCredentialStore(creds map[string]string) *StaticCredentialStore {
	table := make(map[string]domain.Credential, len(creds))
	for username, hash := range creds {
		table[username] = domain.Credential{Username: username, Secret: hash}
	}
	return &StaticCredentialStore{creds: table}
}

// Lookup implements CredentialStore.
func (s *StaticCredentialStore) Lookup(_ context.Context, username string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[username]
	if !ok {
		return nil, ErrNoCredential
	}
	return &cred, nil
}
