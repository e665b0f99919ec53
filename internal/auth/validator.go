package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"newsletter-backend/internal/password"
	"newsletter-backend/internal/secret"
)

// CredentialStore looks stored credentials up by username. It returns
// ErrUserNotFound for unknown users.
type CredentialStore interface {
	GetByUsername(ctx context.Context, username string) (StoredCredentials, error)
}

// PasswordHasher runs hash work off the request goroutine. *password.Pool
// implements it.
type PasswordHasher interface {
	Params() password.Params
	Verify(ctx context.Context, encoded string, plain secret.String) error
	Hash(ctx context.Context, plain secret.String) (string, error)
}

// Validator checks credentials. Unknown users and wrong passwords cost the
// same: a missing user is verified against a dummy hash of the same
// algorithm and parameters.
type Validator struct {
	store     CredentialStore
	hasher    PasswordHasher
	dummyHash string
}

func NewValidator(store CredentialStore, hasher PasswordHasher) (*Validator, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	dummy, err := password.Hash(base64.RawStdEncoding.EncodeToString(raw), hasher.Params())
	if err != nil {
		return nil, fmt.Errorf("compute dummy hash: %w", err)
	}

	return &Validator{store: store, hasher: hasher, dummyHash: dummy}, nil
}

func (v *Validator) Validate(ctx context.Context, creds Credentials) (uuid.UUID, error) {
	username := normalizeUsername(creds.Username)

	hash := v.dummyHash
	userID := uuid.Nil
	stored, err := v.store.GetByUsername(ctx, username)
	switch {
	case err == nil:
		hash = stored.PasswordHash
		userID = stored.UserID
	case errors.Is(err, ErrUserNotFound):
	default:
		return uuid.Nil, &UnexpectedError{Err: fmt.Errorf("get stored credentials: %w", err)}
	}

	if err := v.hasher.Verify(ctx, hash, creds.Password); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return uuid.Nil, ErrInvalidCredentials
		}
		return uuid.Nil, &UnexpectedError{Err: fmt.Errorf("verify password hash: %w", err)}
	}

	if userID == uuid.Nil {
		return uuid.Nil, ErrInvalidCredentials
	}
	return userID, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
