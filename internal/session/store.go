// Package session keeps per-client state on the server, keyed by an opaque
// identifier carried in a signed cookie.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("session not found")

// Store is the backend contract. Implementations must be safe for concurrent
// use. Every method may fail with a connectivity error; callers treat those
// as unexpected failures, never as "no session".
type Store interface {
	// Load returns the raw session data. found is false when the id is
	// unknown or expired.
	Load(ctx context.Context, id string) (data []byte, found bool, err error)
	// Save creates or overwrites the session with the given time to live.
	Save(ctx context.Context, id string, data []byte, ttl time.Duration) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
	// Renew moves the session data under a freshly generated id and returns
	// it; the old id stops resolving. ErrNotFound if id does not exist.
	Renew(ctx context.Context, id string, ttl time.Duration) (string, error)
	// Touch extends the expiry of an existing session.
	Touch(ctx context.Context, id string, ttl time.Duration) error
}

const idBytes = 32

// NewID returns a random, URL-safe session identifier.
func NewID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
