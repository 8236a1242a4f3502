// Package auth provides authentication and session management for homecontrol.
//
// It implements a two-tier account model (default → admin) with:
//   - Argon2id password hashing (OWASP 2025 recommendation)
//   - Server-side sessions: every login creates a session row storing both
//     the access and refresh token, so any session can be revoked instantly
//   - JWT access/refresh tokens carrying only a session ID claim; token
//     validity always requires an exact match against the stored session
//   - Compare-and-swap refresh rotation: concurrent refreshes of the same
//     session admit at most one winner
//
// The first account ever created becomes an enabled admin. Every account
// after that starts disabled and must be enabled by an admin before it can
// log in.
package auth
