package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// SessionConfig holds token lifetimes for the session service.
type SessionConfig struct {
	// Secret signs every access and refresh token.
	Secret string

	// AccessTokenTTL is the access token lifetime.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the standard refresh token lifetime.
	RefreshTokenTTL time.Duration

	// LongLivedRefreshTokenTTL is the extended refresh token lifetime for
	// "remember me" logins. Admin accounts never receive it.
	LongLivedRefreshTokenTTL time.Duration
}

// SessionService manages login sessions: creation, verification, rotation
// and teardown.
type SessionService struct {
	users    UserRepository
	sessions SessionRepository
	cfg      SessionConfig
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewSessionService creates a session service.
func NewSessionService(users UserRepository, sessions SessionRepository, cfg SessionConfig, logger *slog.Logger) *SessionService {
	return &SessionService{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Login authenticates a user by credentials and creates a new session.
//
// Unknown username, wrong password and disabled account all return
// ErrAuthentication; the response never says which check failed. A password
// verification runs even for unknown usernames so the two cases take
// comparable time.
//
// longLived requests an extended refresh lifetime. Admin accounts are always
// given the standard lifetime: a stolen long-lived admin token is a worse
// outcome than an admin re-logging in weekly.
func (s *SessionService) Login(ctx context.Context, username, password string, longLived bool) (*User, *UserSession, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Burn a hash comparison against a fixed dummy so timing does
			// not reveal whether the username exists.
			_, _ = VerifyPassword(password, dummyHash) //nolint:errcheck // result discarded
			return nil, nil, ErrAuthentication
		}
		return nil, nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok || !user.Enabled {
		s.logger.Debug("login rejected", "username", username, "enabled", user.Enabled)
		return nil, nil, ErrAuthentication
	}

	if user.IsAdmin() {
		longLived = false
	}

	session, err := s.createSession(ctx, user, longLived)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("login succeeded",
		"user_id", user.ID,
		"session_id", session.ID,
		"long_lived", session.LongLived,
	)

	return user, session, nil
}

// createSession mints a token pair and persists the session row.
func (s *SessionService) createSession(ctx context.Context, user *User, longLived bool) (*UserSession, error) {
	now := s.now()

	refreshTTL := s.cfg.RefreshTokenTTL
	if longLived {
		refreshTTL = s.cfg.LongLivedRefreshTokenTTL
	}
	expiry := now.Add(refreshTTL)

	session := &UserSession{
		UserID:     user.ID,
		LongLived:  longLived,
		ExpiryTime: expiry,
	}
	// Tokens carry the session ID, so it must exist before signing.
	session.ID = uuid.NewString()

	accessToken, err := SignSessionToken(session.ID, s.cfg.Secret, now.Add(s.cfg.AccessTokenTTL))
	if err != nil {
		return nil, err
	}
	refreshToken, err := SignSessionToken(session.ID, s.cfg.Secret, expiry)
	if err != nil {
		return nil, err
	}
	session.AccessToken = accessToken
	session.RefreshToken = refreshToken

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Verify authenticates a request by access token.
//
// The token must decode against the signing secret, name a live session,
// exactly match that session's stored access token, and belong to an enabled
// user. A rotated or logged-out session fails the exact-match check even if
// the JWT itself has not expired.
func (s *SessionService) Verify(ctx context.Context, accessToken string) (*User, *UserSession, error) {
	session, err := s.resolveSession(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}

	if subtle.ConstantTimeCompare([]byte(session.AccessToken), []byte(accessToken)) != 1 {
		return nil, nil, ErrAuthentication
	}

	user, err := s.sessionUser(ctx, session)
	if err != nil {
		return nil, nil, err
	}

	return user, session, nil
}

// VerifyAdmin authenticates a request and requires an admin account.
// Non-admin accounts get ErrInsufficientPrivileges.
func (s *SessionService) VerifyAdmin(ctx context.Context, accessToken string) (*User, *UserSession, error) {
	user, session, err := s.Verify(ctx, accessToken)
	if err != nil {
		return nil, nil, err
	}
	if !user.IsAdmin() {
		return nil, nil, ErrInsufficientPrivileges
	}
	return user, session, nil
}

// Refresh rotates a session's token pair using its refresh token.
//
// The new refresh token inherits the session's stored long-lived flag, not
// anything the client sends. Rotation is a compare-and-swap on the old
// refresh token, so two concurrent refreshes of one session admit at most
// one winner; the loser gets ErrAuthentication and must log in again.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*UserSession, error) {
	session, err := s.resolveSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(session.RefreshToken), []byte(refreshToken)) != 1 {
		return nil, ErrAuthentication
	}

	if _, err := s.sessionUser(ctx, session); err != nil {
		return nil, err
	}

	now := s.now()
	refreshTTL := s.cfg.RefreshTokenTTL
	if session.LongLived {
		refreshTTL = s.cfg.LongLivedRefreshTokenTTL
	}
	expiry := now.Add(refreshTTL)

	newAccess, err := SignSessionToken(session.ID, s.cfg.Secret, now.Add(s.cfg.AccessTokenTTL))
	if err != nil {
		return nil, err
	}
	newRefresh, err := SignSessionToken(session.ID, s.cfg.Secret, expiry)
	if err != nil {
		return nil, err
	}

	err = s.sessions.Rotate(ctx, SessionRotation{
		SessionID:       session.ID,
		OldRefreshToken: refreshToken,
		NewAccessToken:  newAccess,
		NewRefreshToken: newRefresh,
		NewExpiryTime:   expiry,
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Lost the race to a concurrent refresh.
			s.logger.Warn("refresh rotation conflict", "session_id", session.ID)
			return nil, ErrAuthentication
		}
		return nil, err
	}

	session.AccessToken = newAccess
	session.RefreshToken = newRefresh
	session.ExpiryTime = expiry

	s.logger.Debug("session refreshed", "session_id", session.ID)

	return session, nil
}

// Logout deletes the session named by a verified access token.
// An already-deleted session is not an error: logout is idempotent.
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	_, session, err := s.Verify(ctx, accessToken)
	if err != nil {
		return err
	}

	if err := s.sessions.Delete(ctx, session.ID); err != nil && !errors.Is(err, ErrRecordNotFound) {
		return err
	}

	s.logger.Info("logout", "session_id", session.ID, "user_id", session.UserID)
	return nil
}

// SweepExpired deletes all sessions whose expiry has passed.
// Returns the number of sessions removed.
func (s *SessionService) SweepExpired(ctx context.Context) (int64, error) {
	count, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("expired sessions swept", "count", count)
	}
	return count, nil
}

// resolveSession decodes a token and loads the session it names.
// A token for a deleted session maps to ErrAuthentication, not not-found:
// callers cannot distinguish "never existed" from "revoked".
func (s *SessionService) resolveSession(ctx context.Context, token string) (*UserSession, error) {
	sessionID, err := ParseSessionToken(token, s.cfg.Secret)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	return session, nil
}

// sessionUser loads the session's user and checks the account is enabled.
func (s *SessionService) sessionUser(ctx context.Context, session *UserSession) (*User, error) {
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrAuthentication
		}
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrAuthentication
	}
	return user, nil
}

// dummyHash is a valid Argon2id hash of an unguessable value, used to
// equalise login timing when the username does not exist.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$t0B8p0rolmnM9VhbOtO5z1mOpDIqzCDEmyCq/BTne9E"
