package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
)

// MemoryStore keeps sessions inside the process. It is only correct for a
// single instance; use RedisStore when running more than one.
type MemoryStore struct {
	cache *bigcache.BigCache
	now   func() time.Time
	// serialises the read-modify-write operations (Renew, Touch, Delete)
	mu sync.Mutex
}

func NewMemoryStore(maxTTL time.Duration) (*MemoryStore, error) {
	cfg := bigcache.DefaultConfig(maxTTL)
	cfg.Verbose = false
	cfg.MaxEntrySize = 256

	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("init session cache: %w", err)
	}
	return &MemoryStore{cache: cache, now: time.Now}, nil
}

// entries are stored as an 8 byte big-endian expiry (unix nanos) + data
func (s *MemoryStore) encode(data []byte, ttl time.Duration) []byte {
	buf := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(buf[:8], uint64(s.now().Add(ttl).UnixNano()))
	copy(buf[8:], data)
	return buf
}

func (s *MemoryStore) get(id string) ([]byte, bool) {
	raw, err := s.cache.Get(id)
	if err != nil || len(raw) < 8 {
		return nil, false
	}
	expires := time.Unix(0, int64(binary.BigEndian.Uint64(raw[:8])))
	if !s.now().Before(expires) {
		_ = s.cache.Delete(id)
		return nil, false
	}
	data := make([]byte, len(raw)-8)
	copy(data, raw[8:])
	return data, true
}

func (s *MemoryStore) Load(_ context.Context, id string) ([]byte, bool, error) {
	data, ok := s.get(id)
	return data, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, id string, data []byte, ttl time.Duration) error {
	if err := s.cache.Set(id, s.encode(data, ttl)); err != nil {
		return fmt.Errorf("memory set session: %w", err)
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(id)
}

func (s *MemoryStore) delete(id string) error {
	err := s.cache.Delete(id)
	if err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return fmt.Errorf("memory delete session: %w", err)
	}
	return nil
}

func (s *MemoryStore) Renew(ctx context.Context, id string, ttl time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.get(id)
	if !ok {
		return "", ErrNotFound
	}
	newID, err := NewID()
	if err != nil {
		return "", err
	}
	if err := s.Save(ctx, newID, data, ttl); err != nil {
		return "", err
	}
	if err := s.delete(id); err != nil {
		return "", err
	}
	return newID, nil
}

func (s *MemoryStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.get(id)
	if !ok {
		return nil
	}
	return s.Save(ctx, id, data, ttl)
}

func (s *MemoryStore) Close() error {
	return s.cache.Close()
}
