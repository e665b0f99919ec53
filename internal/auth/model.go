package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"newsletter-backend/internal/secret"
)

// Credentials is what a client submits on login.
type Credentials struct {
	Username string
	Password secret.String
}

// StoredCredentials is the persisted counterpart of Credentials.
type StoredCredentials struct {
	UserID       uuid.UUID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type CleanupResult struct {
	DeletedIPLimits int64 `json:"deleted_ip_limits"`
}

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password. Callers must not be able to tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// UnexpectedError wraps failures that are not the client's fault: store
// outages, malformed hashes, a closed hash pool.
type UnexpectedError struct {
	Err error
}

func (e *UnexpectedError) Error() string {
	return "unexpected authentication failure: " + e.Err.Error()
}

func (e *UnexpectedError) Unwrap() error {
	return e.Err
}
