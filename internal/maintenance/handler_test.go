package maintenance

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"

	"newsletter-backend/internal/auth"
	"newsletter-backend/internal/observability"
)

type fakeCleaner struct {
	calls     int
	retention time.Duration
	batchSize int
	err       error
}

func (f *fakeCleaner) CleanupStaleAuthData(_ context.Context, retention time.Duration, batchSize int) (auth.CleanupResult, error) {
	f.calls++
	f.retention = retention
	f.batchSize = batchSize
	if f.err != nil {
		return auth.CleanupResult{}, f.err
	}
	return auth.CleanupResult{DeletedIPLimits: 4}, nil
}

func newHandler(cleaner *fakeCleaner, secret string) http.HandlerFunc {
	h := NewCleanupHandler(cleaner, observability.NewLoggerWithWriter(io.Discard), secret, 48*time.Hour, 100)
	return h.Handle
}

func TestCleanupDisabledWithoutSecret(t *testing.T) {
	cleaner := &fakeCleaner{}
	apitest.New().HandlerFunc(newHandler(cleaner, "")).
		Post("/internal/maintenance/cleanup").
		Header("Authorization", "Bearer anything").
		Expect(t).
		Status(http.StatusNotFound).
		End()
	assert.Zero(t, cleaner.calls)
}

func TestCleanupRejectsWrongSecret(t *testing.T) {
	cleaner := &fakeCleaner{}
	apitest.New().HandlerFunc(newHandler(cleaner, "cron-secret")).
		Get("/internal/maintenance/cleanup").
		Header("Authorization", "Bearer nope").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	assert.Zero(t, cleaner.calls)
}

func TestCleanupRuns(t *testing.T) {
	cleaner := &fakeCleaner{}
	apitest.New().HandlerFunc(newHandler(cleaner, "cron-secret")).
		Post("/internal/maintenance/cleanup").
		Header("Authorization", "Bearer cron-secret").
		Expect(t).
		Status(http.StatusOK).
		Body(`{"status":"ok","result":{"deleted_ip_limits":4}}`).
		End()

	assert.Equal(t, 1, cleaner.calls)
	assert.Equal(t, 48*time.Hour, cleaner.retention)
	assert.Equal(t, 100, cleaner.batchSize)
}

func TestCleanupFailure(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	apitest.New().HandlerFunc(newHandler(cleaner, "cron-secret")).
		Post("/internal/maintenance/cleanup").
		Header("Authorization", "Bearer cron-secret").
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}
