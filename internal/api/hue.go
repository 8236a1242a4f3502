package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joeldcross/homecontrol-core/internal/devices/hue"
)

// handleListHueBridges returns all paired bridges.
func (s *Server) handleListHueBridges(w http.ResponseWriter, r *http.Request) {
	list, err := s.hue.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleDiscoverHueBridges probes for bridges available to pair.
func (s *Server) handleDiscoverHueBridges(w http.ResponseWriter, r *http.Request) {
	found, err := s.hue.Discover(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// handleCreateHueBridge pairs a bridge. The caller must press the bridge's
// link button first; until then pairing fails and can be retried.
func (s *Server) handleCreateHueBridge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Identifier string `json:"identifier"`
		IPAddress  string `json:"ip_address"`
		Port       int    `json:"port"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.IPAddress == "" {
		writeDetail(w, http.StatusBadRequest, "name and ip_address are required")
		return
	}

	bridge, err := s.hue.Create(r.Context(), req.Name, hue.DiscoveryInfo{
		Identifier: req.Identifier,
		IPAddress:  req.IPAddress,
		Port:       req.Port,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bridge)
}

// handleListHueRooms lists the rooms configured on a bridge.
func (s *Server) handleListHueRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.hue.Rooms(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// handleGetHueRoomState reads a room's full live state.
func (s *Server) handleGetHueRoomState(w http.ResponseWriter, r *http.Request) {
	state, err := s.hue.GetRoomState(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handlePatchHueRoomState applies a partial room patch.
func (s *Server) handlePatchHueRoomState(w http.ResponseWriter, r *http.Request) {
	var patch hue.RoomStatePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	state, err := s.hue.UpdateRoomState(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "roomID"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
