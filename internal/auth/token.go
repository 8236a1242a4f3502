package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SessionClaims are the JWT claims carried by both access and refresh tokens.
//
// A token identifies a session, nothing more: no role, no username. Every
// authorisation decision loads the session row, so the claims stay minimal
// and tokens become worthless the moment their session is deleted or rotated.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"session_id"`
}

// SignSessionToken creates a signed HS256 JWT for a session, expiring at the
// given time.
//
// Every mint carries a fresh jti. Timestamps have one-second precision, so
// without it two tokens minted within the same second would be byte-identical
// and a rotation inside that window would leave the old refresh token equal
// to the new one, still matching the stored session.
func SignSessionToken(sessionID, secret string, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing session token: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates a session JWT and returns the session ID it
// names. Expired tokens return ErrTokenExpired; any other failure (bad
// signature, malformed, wrong algorithm, missing claim) returns ErrTokenInvalid.
func ParseSessionToken(tokenString, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", ErrTokenInvalid
	}

	if claims.SessionID == "" {
		return "", fmt.Errorf("%w: missing session_id", ErrTokenInvalid)
	}

	return claims.SessionID, nil
}
