package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByUsername(ctx context.Context, username string) (StoredCredentials, error) {
	var user StoredCredentials
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at, updated_at
		FROM users
		WHERE username = $1
	`, username).Scan(&user.UserID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredCredentials{}, ErrUserNotFound
		}
		return StoredCredentials{}, fmt.Errorf("query user by username: %w", err)
	}

	return user, nil
}

func (r *Repository) GetUsername(ctx context.Context, userID uuid.UUID) (string, error) {
	var username string
	err := r.db.QueryRowContext(ctx, `
		SELECT username
		FROM users
		WHERE id = $1
	`, userID).Scan(&username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("query username: %w", err)
	}

	return username, nil
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, updated_at = $3
		WHERE id = $1
	`, userID, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password hash rows affected: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// UpsertSingleUser makes username the only user, with the given hash. The
// oldest existing row keeps its id so live sessions stay attached to it.
func (r *Repository) UpsertSingleUser(ctx context.Context, username, passwordHash string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existingID uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT id FROM users ORDER BY created_at ASC LIMIT 1`).Scan(&existingID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("select existing user: %w", err)
		}
		existingID = id
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
		`, existingID, username, passwordHash, now); err != nil {
			return fmt.Errorf("insert admin user: %w", err)
		}
	} else {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users
			SET username = $2, password_hash = $3, updated_at = $4
			WHERE id = $1
		`, existingID, username, passwordHash, now); err != nil {
			return fmt.Errorf("update admin user: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id <> $1`, existingID); err != nil {
		return fmt.Errorf("cleanup extra users: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// AllowLoginIP counts one login attempt from ip inside a fixed window and
// reports whether it is still within maxHits.
func (r *Repository) AllowLoginIP(ctx context.Context, ip string, maxHits int, window time.Duration, now time.Time) (bool, time.Duration, error) {
	threshold := now.UTC().Add(-window)

	var hits int
	var windowStartedAt time.Time
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO auth_login_ip_limits (ip, window_started_at, hits, updated_at)
		VALUES ($1, $2, 1, $2)
		ON CONFLICT (ip) DO UPDATE
		SET
			hits = CASE
				WHEN auth_login_ip_limits.window_started_at <= $3 THEN 1
				ELSE auth_login_ip_limits.hits + 1
			END,
			window_started_at = CASE
				WHEN auth_login_ip_limits.window_started_at <= $3 THEN $2
				ELSE auth_login_ip_limits.window_started_at
			END,
			updated_at = $2
		RETURNING hits, window_started_at
	`, ip, now.UTC(), threshold).Scan(&hits, &windowStartedAt)
	if err != nil {
		return false, 0, fmt.Errorf("upsert login ip rate limit: %w", err)
	}

	if hits <= maxHits {
		return true, 0, nil
	}

	return false, retryAfter(windowStartedAt.Add(window), now), nil
}

func (r *Repository) CleanupStaleAuthData(ctx context.Context, retention time.Duration, batchSize int) (CleanupResult, error) {
	if batchSize <= 0 {
		batchSize = 500
	}
	if retention <= 0 {
		retention = 30 * 24 * time.Hour
	}

	res, err := r.db.ExecContext(ctx, `
		WITH stale AS (
			SELECT ip
			FROM auth_login_ip_limits
			WHERE updated_at < $1
			ORDER BY updated_at ASC
			LIMIT $2
		)
		DELETE FROM auth_login_ip_limits t
		USING stale
		WHERE t.ip = stale.ip
	`, time.Now().UTC().Add(-retention), batchSize)
	if err != nil {
		return CleanupResult{}, fmt.Errorf("delete stale login ip limits: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return CleanupResult{}, fmt.Errorf("stale login ip limits rows affected: %w", err)
	}

	return CleanupResult{DeletedIPLimits: affected}, nil
}
