package auth

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// testDB creates a temporary SQLite database with the auth schema applied.
// The database file is cleaned up when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	// Use a temp file so WAL mode works (in-memory doesn't support it)
	f, err := os.CreateTemp("", "auth-test-*.db")
	if err != nil {
		t.Fatalf("creating temp db: %v", err)
	}
	dbPath := f.Name()
	f.Close()
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	schemaSQL := `
		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT 'default',
			enabled INTEGER NOT NULL DEFAULT 0
		) STRICT;

		CREATE UNIQUE INDEX idx_users_username ON users(username);

		CREATE TABLE user_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			long_lived INTEGER NOT NULL DEFAULT 0,
			expiry_time TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		) STRICT;

		CREATE INDEX idx_user_sessions_user ON user_sessions(user_id);
		CREATE INDEX idx_user_sessions_expiry ON user_sessions(expiry_time);
	`
	if _, err := db.Exec(schemaSQL); err != nil {
		t.Fatalf("applying auth schema: %v", err)
	}

	return db
}

// testLogger returns a logger that discards everything.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedTestUser inserts a user with the password "test-password" and returns it.
func seedTestUser(t *testing.T, db *sql.DB, username string, accountType AccountType, enabled bool) *User {
	t.Helper()

	hash, err := HashPassword("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	repo := NewUserRepository(db)
	user := &User{
		Username:     username,
		PasswordHash: hash,
		AccountType:  accountType,
		Enabled:      enabled,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", username, err)
	}
	return user
}

// futureTime returns a session expiry comfortably in the future.
func futureTime(t *testing.T) time.Time {
	t.Helper()
	return time.Now().Add(time.Hour)
}

// testSessionConfig returns token lifetimes short enough for tests.
func testSessionConfig() SessionConfig {
	return SessionConfig{
		Secret:                   "test-secret",
		AccessTokenTTL:           30 * time.Minute,
		RefreshTokenTTL:          7 * 24 * time.Hour,
		LongLivedRefreshTokenTTL: 90 * 24 * time.Hour,
	}
}

// testSessionService wires a session service over the given database.
func testSessionService(t *testing.T, db *sql.DB) *SessionService {
	t.Helper()
	return NewSessionService(NewUserRepository(db), NewSessionRepository(db), testSessionConfig(), testLogger())
}
