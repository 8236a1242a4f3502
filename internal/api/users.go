package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joeldcross/homecontrol-core/internal/auth"
)

// handleCreateUser registers an account. Registration is open: the first
// registration on an empty system creates the enabled admin, and later
// self-registrations start disabled until an admin enables them.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleListUsers returns all accounts. Admin only.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleUpdateUser applies a partial account update. Admin only.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var update auth.UserUpdate
	if !decodeBody(w, r, &update) {
		return
	}

	user, err := s.users.Update(r.Context(), chi.URLParam(r, "id"), update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes an account. Admin only.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
