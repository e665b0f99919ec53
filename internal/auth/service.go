package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"newsletter-backend/internal/secret"
)

const (
	MinPasswordLength = 12
	MaxPasswordLength = 128
)

var (
	ErrPasswordConfirmation = errors.New("You entered two different new passwords - the field values must match.")
	ErrPasswordLength       = fmt.Errorf("The new password must be between %d and %d characters long.", MinPasswordLength, MaxPasswordLength)
	ErrCurrentPassword      = errors.New("The current password is incorrect.")
)

// UserRepository is the persistence the Service needs. *Repository
// implements it.
type UserRepository interface {
	CredentialStore
	GetUsername(ctx context.Context, userID uuid.UUID) (string, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error
	UpsertSingleUser(ctx context.Context, username, passwordHash string) error
}

type Service struct {
	repo      UserRepository
	hasher    PasswordHasher
	validator *Validator
}

func NewService(repo UserRepository, hasher PasswordHasher) (*Service, error) {
	validator, err := NewValidator(repo, hasher)
	if err != nil {
		return nil, err
	}
	return &Service{repo: repo, hasher: hasher, validator: validator}, nil
}

func (s *Service) Validate(ctx context.Context, creds Credentials) (uuid.UUID, error) {
	return s.validator.Validate(ctx, creds)
}

func (s *Service) Username(ctx context.Context, userID uuid.UUID) (string, error) {
	username, err := s.repo.GetUsername(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("get username: %w", err)
	}
	return username, nil
}

// CheckNewPassword applies the password policy. The returned errors carry
// user-facing messages.
func CheckNewPassword(next, confirm secret.String) error {
	if next.Expose() != confirm.Expose() {
		return ErrPasswordConfirmation
	}
	n := len([]rune(next.Expose()))
	if n < MinPasswordLength || n > MaxPasswordLength {
		return ErrPasswordLength
	}
	return nil
}

// ChangePassword re-checks the current password before storing a hash of
// the new one. Policy violations and a wrong current password come back as
// the sentinel errors above; anything else is unexpected.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next, confirm secret.String) error {
	if err := CheckNewPassword(next, confirm); err != nil {
		return err
	}

	username, err := s.Username(ctx, userID)
	if err != nil {
		return &UnexpectedError{Err: err}
	}

	if _, err := s.validator.Validate(ctx, Credentials{Username: username, Password: current}); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return ErrCurrentPassword
		}
		return err
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return &UnexpectedError{Err: fmt.Errorf("hash new password: %w", err)}
	}
	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return &UnexpectedError{Err: err}
	}
	return nil
}

// BootstrapFromEnv installs the single admin user. Both values empty means
// nothing to do.
func (s *Service) BootstrapFromEnv(ctx context.Context, adminUsername string, adminPassword secret.String) error {
	adminUsername = normalizeUsername(adminUsername)

	if adminUsername == "" && adminPassword.IsEmpty() {
		return nil
	}
	if adminUsername == "" || adminPassword.IsEmpty() {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD are required together")
	}

	hash, err := s.hasher.Hash(ctx, adminPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	return s.repo.UpsertSingleUser(ctx, adminUsername, hash)
}
