package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// minPasswordLength is the minimum allowed password length.
const minPasswordLength = 8

// IsValidUsername checks if a username meets format requirements.
// Usernames must be 1-64 characters, alphanumeric with dots, hyphens, underscores.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// AccountType represents an authorisation tier in the system.
type AccountType string

const (
	// AccountDefault is a household member: device control and room views,
	// no user administration.
	AccountDefault AccountType = "default"

	// AccountAdmin has full system control: devices, rooms, user accounts.
	// The first account created on an empty system is always an admin.
	AccountAdmin AccountType = "admin"
)

// IsValidAccountType returns true if the account type is recognised.
func IsValidAccountType(t AccountType) bool {
	return t == AccountDefault || t == AccountAdmin
}

// User represents an authenticated human account.
type User struct {
	ID           string      `json:"id"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"` // never serialised
	AccountType  AccountType `json:"account_type"`
	Enabled      bool        `json:"enabled"`
}

// IsAdmin returns true if the user holds the admin account type.
func (u *User) IsAdmin() bool {
	return u.AccountType == AccountAdmin
}

// UserSession represents a single login session.
//
// Both tokens are stored verbatim: a presented token is only valid while it
// exactly matches the stored value, which makes revocation (logout, rotation)
// take effect immediately regardless of the token's own expiry.
type UserSession struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	AccessToken  string    `json:"-"` // never serialised
	RefreshToken string    `json:"-"` // never serialised
	LongLived    bool      `json:"long_lived"`
	ExpiryTime   time.Time `json:"expiry_time"`
}

// Sentinel errors for auth operations.
//
// ErrAuthentication deliberately covers unknown username, wrong password and
// disabled account alike, so responses never disclose which one failed.
var (
	ErrAuthentication         = errors.New("authentication failed")
	ErrInsufficientPrivileges = errors.New("insufficient privileges")
	ErrDuplicateRecord        = errors.New("record already exists")
	ErrRecordNotFound         = errors.New("record not found")
	ErrTokenExpired           = errors.New("token has expired")
	ErrTokenInvalid           = errors.New("invalid token")
	ErrInvalidUsername        = errors.New("invalid username")
	ErrInvalidAccountType     = errors.New("invalid account type")
	ErrPasswordTooShort       = errors.New("password too short")
)
