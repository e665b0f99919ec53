package auth

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"newsletter-backend/internal/password"
	"newsletter-backend/internal/secret"
)

var fastParams = password.Params{Memory: 64, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

const testHMACKey = "0123456789abcdef0123456789abcdef"

func testKey(t *testing.T) secret.Key {
	t.Helper()
	key, err := secret.NewKey(testHMACKey)
	require.NoError(t, err)
	return key
}

// fakeRepo is an in-memory UserRepository.
type fakeRepo struct {
	mu    sync.Mutex
	users map[string]StoredCredentials
	err   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]StoredCredentials)}
}

func (f *fakeRepo) add(t *testing.T, username, plain string) uuid.UUID {
	t.Helper()
	hash, err := password.Hash(plain, fastParams)
	require.NoError(t, err)

	id := uuid.New()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[username] = StoredCredentials{UserID: id, Username: username, PasswordHash: hash}
	return id
}

func (f *fakeRepo) hashOf(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[username].PasswordHash
}

func (f *fakeRepo) GetByUsername(_ context.Context, username string) (StoredCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return StoredCredentials{}, f.err
	}
	user, ok := f.users[username]
	if !ok {
		return StoredCredentials{}, ErrUserNotFound
	}
	return user, nil
}

func (f *fakeRepo) GetUsername(_ context.Context, userID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	for _, user := range f.users {
		if user.UserID == userID {
			return user.Username, nil
		}
	}
	return "", ErrUserNotFound
}

func (f *fakeRepo) UpdatePasswordHash(_ context.Context, userID uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, user := range f.users {
		if user.UserID == userID {
			user.PasswordHash = hash
			f.users[name] = user
			return nil
		}
	}
	return ErrUserNotFound
}

func (f *fakeRepo) UpsertSingleUser(_ context.Context, username, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	for _, user := range f.users {
		id = user.UserID
	}
	f.users = map[string]StoredCredentials{
		username: {UserID: id, Username: username, PasswordHash: passwordHash},
	}
	return nil
}

// countingHasher wraps a real pool and counts verifications.
type countingHasher struct {
	*password.Pool
	verifications atomic.Int64
}

func newCountingHasher(t *testing.T) *countingHasher {
	t.Helper()
	pool := password.NewPool(2, fastParams)
	t.Cleanup(pool.Close)
	return &countingHasher{Pool: pool}
}

func (c *countingHasher) Verify(ctx context.Context, encoded string, plain secret.String) error {
	c.verifications.Add(1)
	return c.Pool.Verify(ctx, encoded, plain)
}

var errDatabaseDown = errors.New("database down")
