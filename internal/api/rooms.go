package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joeldcross/homecontrol-core/internal/room"
)

// handleCreateRoom composes a room from controller bindings.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string            `json:"name"`
		Controllers []room.Controller `json:"controllers"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := s.rooms.Create(r.Context(), req.Name, req.Controllers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleListRooms returns all composed rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	list, err := s.rooms.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleGetRoom returns one composed room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	found, err := s.rooms.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// handleGetRoomState resolves every controller in a room to live state.
// A dangling binding fails the whole resolution.
func (s *Server) handleGetRoomState(w http.ResponseWriter, r *http.Request) {
	state, err := s.rooms.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleDeleteRoom removes a composed room.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.rooms.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
