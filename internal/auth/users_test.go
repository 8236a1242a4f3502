package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func testUserService(t *testing.T, db *sql.DB) *UserService {
	t.Helper()
	return NewUserService(NewUserRepository(db), NewSessionRepository(db), testLogger())
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)

	first, err := svc.Register(context.Background(), "alice", "a strong password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if first.AccountType != AccountAdmin || !first.Enabled {
		t.Errorf("first user = %+v, want enabled admin", first)
	}

	second, err := svc.Register(context.Background(), "bob", "another password")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if second.AccountType != AccountDefault || second.Enabled {
		t.Errorf("second user = %+v, want disabled default", second)
	}
}

func TestRegisterValidation(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"empty username", "", "a strong password", ErrInvalidUsername},
		{"username with spaces", "bad name", "a strong password", ErrInvalidUsername},
		{"short password", "alice", "short", ErrPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.username, tt.password); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)

	if _, err := svc.Register(context.Background(), "alice", "a strong password"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "alice", "a strong password"); !errors.Is(err, ErrDuplicateRecord) {
		t.Errorf("got %v, want ErrDuplicateRecord", err)
	}
}

func TestUserUpdateEnables(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)
	user := seedTestUser(t, db, "bob", AccountDefault, false)

	enabled := true
	got, err := svc.Update(context.Background(), user.ID, UserUpdate{Enabled: &enabled})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !got.Enabled {
		t.Error("user not enabled after update")
	}
}

func TestUserUpdateInvalidAccountType(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)
	user := seedTestUser(t, db, "bob", AccountDefault, true)

	bogus := AccountType("superuser")
	if _, err := svc.Update(context.Background(), user.ID, UserUpdate{AccountType: &bogus}); !errors.Is(err, ErrInvalidAccountType) {
		t.Errorf("got %v, want ErrInvalidAccountType", err)
	}
}

func TestUserUpdateDisableRevokesSessions(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)
	sessionSvc := testSessionService(t, db)
	user := seedTestUser(t, db, "alice", AccountDefault, true)

	_, session, err := sessionSvc.Login(context.Background(), "alice", "test-password", false)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	disabled := false
	if _, err := svc.Update(context.Background(), user.ID, UserUpdate{Enabled: &disabled}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sessions, err := NewSessionRepository(db).ListByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("%d sessions remain after disabling account", len(sessions))
	}
	if _, _, err := sessionSvc.Verify(context.Background(), session.AccessToken); !errors.Is(err, ErrAuthentication) {
		t.Errorf("token still verifies after disable: %v", err)
	}
}

func TestUserUpdatePasswordRevokesSessions(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)
	sessionSvc := testSessionService(t, db)
	user := seedTestUser(t, db, "alice", AccountDefault, true)

	if _, _, err := sessionSvc.Login(context.Background(), "alice", "test-password", false); err != nil {
		t.Fatalf("Login: %v", err)
	}

	newPassword := "a brand new password"
	if _, err := svc.Update(context.Background(), user.ID, UserUpdate{Password: &newPassword}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	sessions, err := NewSessionRepository(db).ListByUser(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("%d sessions remain after password change", len(sessions))
	}

	// Old password no longer works, new one does.
	if _, _, err := sessionSvc.Login(context.Background(), "alice", "test-password", false); !errors.Is(err, ErrAuthentication) {
		t.Errorf("old password still logs in: %v", err)
	}
	if _, _, err := sessionSvc.Login(context.Background(), "alice", newPassword, false); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestUserDelete(t *testing.T) {
	db := testDB(t)
	svc := testUserService(t, db)
	user := seedTestUser(t, db, "bob", AccountDefault, true)

	if err := svc.Delete(context.Background(), user.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), user.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("got %v, want ErrRecordNotFound", err)
	}
	if err := svc.Delete(context.Background(), user.ID); !errors.Is(err, ErrRecordNotFound) {
		t.Errorf("second delete: got %v, want ErrRecordNotFound", err)
	}
}
