package auth

import (
	"context"
	"fmt"
	"log/slog"
)

// UserService manages user account lifecycle.
type UserService struct {
	users    UserRepository
	sessions SessionRepository
	logger   *slog.Logger
}

// NewUserService creates a user service.
func NewUserService(users UserRepository, sessions SessionRepository, logger *slog.Logger) *UserService {
	return &UserService{users: users, sessions: sessions, logger: logger}
}

// Register creates a new user account.
//
// The first account on an empty system becomes an enabled admin so there is
// always a way in. Every later account starts as a disabled default user and
// stays locked out until an admin enables it.
func (s *UserService) Register(ctx context.Context, username, password string) (*User, error) {
	if !IsValidUsername(username) {
		return nil, ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	count, err := s.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}

	user := &User{
		Username:     username,
		PasswordHash: hash,
		AccountType:  AccountDefault,
		Enabled:      false,
	}
	if count == 0 {
		user.AccountType = AccountAdmin
		user.Enabled = true
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		"user_id", user.ID,
		"username", user.Username,
		"account_type", string(user.AccountType),
		"enabled", user.Enabled,
	)

	return user, nil
}

// Get retrieves a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns all user accounts.
func (s *UserService) List(ctx context.Context) ([]User, error) {
	return s.users.List(ctx)
}

// UserUpdate carries the mutable fields of a user account. Nil fields are
// left unchanged.
type UserUpdate struct {
	Password    *string      `json:"password,omitempty"`
	AccountType *AccountType `json:"account_type,omitempty"`
	Enabled     *bool        `json:"enabled,omitempty"`
}

// Update applies an update to a user account.
//
// Disabling an account or changing its password deletes all of its sessions,
// so existing tokens stop working at once rather than at their next expiry.
func (s *UserService) Update(ctx context.Context, id string, update UserUpdate) (*User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	revokeSessions := false

	if update.Password != nil {
		if len(*update.Password) < minPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := HashPassword(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		user.PasswordHash = hash
		revokeSessions = true
	}

	if update.AccountType != nil {
		if !IsValidAccountType(*update.AccountType) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAccountType, *update.AccountType)
		}
		user.AccountType = *update.AccountType
	}

	if update.Enabled != nil {
		if user.Enabled && !*update.Enabled {
			revokeSessions = true
		}
		user.Enabled = *update.Enabled
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if revokeSessions {
		if err := s.sessions.DeleteAllForUser(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("revoking sessions: %w", err)
		}
	}

	s.logger.Info("user updated", "user_id", user.ID, "sessions_revoked", revokeSessions)

	return user, nil
}

// Delete removes a user account. Sessions cascade at the database level.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", "user_id", id)
	return nil
}
