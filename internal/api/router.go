package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	// Session endpoints. Refresh authenticates by refresh cookie, logout by
	// access cookie; neither goes through the verify middleware because both
	// must reach the handler with a token the middleware would reject.
	r.Post("/login", s.handleLogin)
	r.Post("/refresh", s.handleRefresh)
	r.Post("/logout", s.handleLogout)

	// Registration is open; see handleCreateUser.
	r.Post("/users", s.handleCreateUser)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)

		r.Get("/verify", s.handleVerify)

		r.Route("/devices/aircon", func(r chi.Router) {
			r.Get("/", s.handleListACDevices)
			r.Get("/discover", s.handleDiscoverACDevices)
			r.Post("/", s.handleCreateACDevice)
			r.Get("/{id}/state", s.handleGetACState)
			r.Patch("/{id}/state", s.handlePatchACState)
		})

		r.Route("/devices/hue", func(r chi.Router) {
			r.Get("/", s.handleListHueBridges)
			r.Get("/discover", s.handleDiscoverHueBridges)
			r.Post("/", s.handleCreateHueBridge)
			r.Get("/{id}/rooms", s.handleListHueRooms)
			r.Get("/{id}/rooms/{roomID}/state", s.handleGetHueRoomState)
			r.Patch("/{id}/rooms/{roomID}/state", s.handlePatchHueRoomState)
		})

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Post("/", s.handleCreateRoom)
			r.Get("/{id}", s.handleGetRoom)
			r.Get("/{id}/state", s.handleGetRoomState)
			r.Delete("/{id}", s.handleDeleteRoom)
		})
	})

	// Admin-only routes
	r.Group(func(r chi.Router) {
		r.Use(s.requireAdmin)

		r.Get("/users", s.handleListUsers)
		r.Patch("/users/{id}", s.handleUpdateUser)
		r.Delete("/users/{id}", s.handleDeleteUser)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
