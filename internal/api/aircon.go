package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
)

// handleListACDevices returns all paired AC units.
func (s *Server) handleListACDevices(w http.ResponseWriter, r *http.Request) {
	list, err := s.aircon.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleDiscoverACDevices probes the network for units available to pair.
func (s *Server) handleDiscoverACDevices(w http.ResponseWriter, r *http.Request) {
	found, err := s.aircon.Discover(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

// handleCreateACDevice pairs a discovered unit and persists it.
func (s *Server) handleCreateACDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string `json:"name"`
		IPAddress string `json:"ip_address"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.IPAddress == "" {
		writeDetail(w, http.StatusBadRequest, "name and ip_address are required")
		return
	}

	device, err := s.aircon.Create(r.Context(), req.Name, aircon.DiscoveryInfo{IPAddress: req.IPAddress})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, device)
}

// handleGetACState polls a unit for its current state.
func (s *Server) handleGetACState(w http.ResponseWriter, r *http.Request) {
	state, err := s.aircon.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handlePatchACState applies a partial state patch to a unit.
func (s *Server) handlePatchACState(w http.ResponseWriter, r *http.Request) {
	var patch aircon.StatePatch
	if !decodeBody(w, r, &patch) {
		return
	}

	state, err := s.aircon.UpdateState(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}
