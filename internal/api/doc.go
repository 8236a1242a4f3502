// Package api provides the HTTP REST API for homecontrol.
//
// It exposes session management (login, verify, refresh, logout), user
// administration, device pairing and control for the AC and Hue families,
// and composed rooms.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Authentication is cookie-based: login sets an access_token and a
// refresh_token cookie, both HttpOnly, expiring with the session. Every
// error is rendered uniformly as {"detail": message}.
package api
