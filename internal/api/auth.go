package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/joeldcross/homecontrol-core/internal/auth"
)

// Cookie names for the session token pair.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// bearerPrefix is carried inside the access cookie value so the same value
// can be pasted into an Authorization header.
const bearerPrefix = "Bearer "

// sessionResponse is the body returned by login and refresh.
type sessionResponse struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// setSessionCookies sets both token cookies. Both expire with the session,
// not with the access token: the client keeps presenting the stale access
// cookie and relies on 401 + refresh to rotate it.
func setSessionCookies(w http.ResponseWriter, session *auth.UserSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    bearerPrefix + session.AccessToken,
		Path:     "/",
		Expires:  session.ExpiryTime,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    session.RefreshToken,
		Path:     "/",
		Expires:  session.ExpiryTime,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookies expires both token cookies.
func clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// accessTokenFromRequest reads the access token cookie, tolerating the
// Bearer prefix. The cookie layer percent-encodes the space, so both forms
// appear in practice.
func accessTokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}

	value := cookie.Value
	value = strings.TrimPrefix(value, bearerPrefix)
	value = strings.TrimPrefix(value, "Bearer%20")
	return value, true
}

// refreshTokenFromRequest reads the refresh token cookie.
func refreshTokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// handleLogin authenticates credentials and starts a session.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		LongLived bool   `json:"long_lived"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, session, err := s.sessions.Login(r.Context(), req.Username, req.Password, req.LongLived)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: session.ID, UserID: user.ID})
}

// handleVerify returns the authenticated user. Auth happens in middleware.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, requestUser(r))
}

// handleRefresh rotates the session's token pair from the refresh cookie.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := refreshTokenFromRequest(r)
	if !ok {
		writeError(w, auth.ErrAuthentication)
		return
	}

	session, err := s.sessions.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}

	setSessionCookies(w, session)
	writeJSON(w, http.StatusOK, sessionResponse{SessionID: session.ID, UserID: session.UserID})
}

// handleLogout tears down the session and clears both cookies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := accessTokenFromRequest(r)
	if !ok {
		writeError(w, auth.ErrAuthentication)
		return
	}

	if err := s.sessions.Logout(r.Context(), token); err != nil {
		writeError(w, err)
		return
	}

	clearSessionCookies(w)
	w.WriteHeader(http.StatusNoContent)
}
