package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/task-service/internal/auth"
	"github.com/spec-kit/task-service/internal/config"
	"github.com/spec-kit/task-service/internal/domain"
	"github.com/spec-kit/task-service/internal/events"
	"github.com/spec-kit/task-service/internal/repository"
	apperrors "github.com/spec-kit/task-service/pkg/util"
)

const minPasswordLength = 6

// The login failure message is identical for unknown email and wrong
// password to prevent user enumeration.
const invalidCredentialsMessage = "Invalid email or password"

// AuthService coordinates registration, login, and account maintenance.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	dispatcher events.Dispatcher
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime),
		bcryptCost: cfg.Auth.BcryptCost,
		dispatcher: deps.Dispatcher,
	}
}

// RegisterUser creates a new account and issues its first token. The
// duplicate pre-checks produce friendly messages; the storage UNIQUE
// constraints remain authoritative and their violations map to the same
// errors.
func (s *AuthService) RegisterUser(ctx context.Context, name, email, password string) (*domain.User, string, time.Time, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)

	if name == "" || email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("Please provide name, email, and password", nil)
	}
	if len(password) < minPasswordLength {
		return nil, "", time.Time{}, apperrors.NewValidationError("Password must be at least 6 characters", nil)
	}
	if !strings.Contains(email, "@") {
		return nil, "", time.Time{}, apperrors.NewValidationError(`the email should include the "@"`, nil)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("User already exists with this email")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}
	if _, err := s.users.GetByName(ctx, name); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("the name already exists")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case apperrors.IsUniqueViolation(err, "users_email_key"):
			return nil, "", time.Time{}, apperrors.NewConflict("User already exists with this email")
		case apperrors.IsUniqueViolation(err, "users_name_key"):
			return nil, "", time.Time{}, apperrors.NewConflict("the name already exists")
		default:
			return nil, "", time.Time{}, err
		}
	}

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:   events.EventUserRegistered,
		UserID: user.ID,
		Payload: events.UserRegisteredPayload{
			Name:  user.Name,
			Email: user.Email,
		},
	})

	user.PasswordHash = ""
	return user, token, exp, nil
}

// LoginUser authenticates an account against its stored hash.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("Please provide email and password", nil)
	}

	user, err := s.users.GetCredentialsByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentialsMessage)
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized(invalidCredentialsMessage)
	}

	token, exp, err := s.tokenMgr.Issue(user.ID)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user.PasswordHash = ""
	return user, token, exp, nil
}

// GetProfile returns the account without its credential material.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes name and/or email. It never touches the password
// hash, so repeated profile updates leave the stored credential unchanged.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, name, email string) (*domain.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		if name != user.Name {
			if _, err := s.users.GetByName(ctx, name); err == nil {
				return nil, apperrors.NewConflict("the name already exists")
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		}
		user.Name = name
	}
	if email = strings.TrimSpace(email); email != "" {
		if !strings.Contains(email, "@") {
			return nil, apperrors.NewValidationError(`the email should include the "@"`, nil)
		}
		if email != user.Email {
			if _, err := s.users.GetByEmail(ctx, email); err == nil {
				return nil, apperrors.NewConflict("User already exists with this email")
			} else if !errors.Is(err, pgx.ErrNoRows) {
				return nil, err
			}
		}
		user.Email = email
	}

	if err := s.users.Update(ctx, user); err != nil {
		switch {
		case apperrors.IsUniqueViolation(err, "users_email_key"):
			return nil, apperrors.NewConflict("User already exists with this email")
		case apperrors.IsUniqueViolation(err, "users_name_key"):
			return nil, apperrors.NewConflict("the name already exists")
		case errors.Is(err, pgx.ErrNoRows):
			return nil, apperrors.NewNotFound("user")
		default:
			return nil, err
		}
	}
	return user, nil
}

// ChangePassword verifies the current password before storing a new hash.
// This is the only mutation path that re-derives the hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if currentPassword == "" || newPassword == "" {
		return apperrors.NewValidationError("Please provide current and new password", nil)
	}
	if len(newPassword) < minPasswordLength {
		return apperrors.NewValidationError("Password must be at least 6 characters", nil)
	}

	user, err := s.users.GetCredentialsByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized(invalidCredentialsMessage)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.users.UpdatePasswordHash(ctx, userID, hash)
}

// DeleteAccount removes the user; owned tasks cascade at the storage layer.
// Outstanding tokens stay valid until expiry since verification is
// stateless.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user")
		}
		return err
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
