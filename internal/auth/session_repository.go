package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionRepository defines the interface for login session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *UserSession) error
	GetByID(ctx context.Context, id string) (*UserSession, error)
	ListByUser(ctx context.Context, userID string) ([]UserSession, error)
	Rotate(ctx context.Context, rotation SessionRotation) error
	Delete(ctx context.Context, id string) error
	DeleteAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// SessionRotation describes a refresh-token rotation for a session.
// OldRefreshToken guards the update: the rotation only applies if the stored
// refresh token still equals it.
type SessionRotation struct {
	SessionID       string
	OldRefreshToken string
	NewAccessToken  string
	NewRefreshToken string
	NewExpiryTime   time.Time
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

// Create inserts a new session. The ID is generated if empty.
func (r *SQLiteSessionRepository) Create(ctx context.Context, session *UserSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (id, user_id, access_token, refresh_token, long_lived, expiry_time)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.AccessToken, session.RefreshToken,
		boolToInt(session.LongLived),
		session.ExpiryTime.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateRecord
		}
		return fmt.Errorf("creating session: %w", err)
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SQLiteSessionRepository) GetByID(ctx context.Context, id string) (*UserSession, error) {
	var s UserSession
	var longLived int
	var expiryTime string

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, access_token, refresh_token, long_lived, expiry_time
		 FROM user_sessions WHERE id = ?`, id,
	).Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken, &longLived, &expiryTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}

	s.LongLived = longLived != 0
	s.ExpiryTime, _ = time.Parse(time.RFC3339, expiryTime) //nolint:errcheck // format is controlled

	return &s, nil
}

// ListByUser returns all sessions for a user, newest expiry first.
func (r *SQLiteSessionRepository) ListByUser(ctx context.Context, userID string) ([]UserSession, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, access_token, refresh_token, long_lived, expiry_time
		 FROM user_sessions WHERE user_id = ? ORDER BY expiry_time DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []UserSession
	for rows.Next() {
		var s UserSession
		var longLived int
		var expiryTime string

		if err := rows.Scan(&s.ID, &s.UserID, &s.AccessToken, &s.RefreshToken, &longLived, &expiryTime); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}

		s.LongLived = longLived != 0
		s.ExpiryTime, _ = time.Parse(time.RFC3339, expiryTime) //nolint:errcheck // format is controlled

		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	if sessions == nil {
		sessions = []UserSession{}
	}
	return sessions, nil
}

// Rotate swaps a session's tokens, guarded by the old refresh token.
//
// The WHERE clause makes rotation a compare-and-swap: when two refreshes race
// on the same session, the first to commit rewrites the refresh token and the
// second no longer matches, so it gets ErrRecordNotFound instead of silently
// minting a second pair of valid tokens.
func (r *SQLiteSessionRepository) Rotate(ctx context.Context, rotation SessionRotation) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_sessions
		 SET access_token = ?, refresh_token = ?, expiry_time = ?
		 WHERE id = ? AND refresh_token = ?`,
		rotation.NewAccessToken, rotation.NewRefreshToken,
		rotation.NewExpiryTime.UTC().Format(time.RFC3339),
		rotation.SessionID, rotation.OldRefreshToken,
	)
	if err != nil {
		return fmt.Errorf("rotating session: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// Delete removes a session by ID.
func (r *SQLiteSessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM user_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// DeleteAllForUser removes every session belonging to a user.
// Used when an account is disabled or its password changed.
func (r *SQLiteSessionRepository) DeleteAllForUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM user_sessions WHERE user_id = ?", userID)
	if err != nil {
		return fmt.Errorf("deleting sessions for user: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry is strictly before the given
// time; a session expiring exactly at it survives. Returns the number of
// deleted rows.
func (r *SQLiteSessionRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM user_sessions WHERE expiry_time < ?",
		before.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}

	count, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return count, nil
}
