package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/joeldcross/homecontrol-core/internal/auth"
	"github.com/joeldcross/homecontrol-core/internal/devices"
	"github.com/joeldcross/homecontrol-core/internal/room"
)

// detail is the uniform error response body.
type detail struct {
	Detail string `json:"detail"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeDetail writes a {"detail": message} error response.
func writeDetail(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, detail{Detail: message})
}

// writeError maps a domain error to its fixed status code and renders it.
// Authentication failures deliberately share one message so the response
// never says which check failed.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrAuthentication),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid):
		writeDetail(w, http.StatusUnauthorized, "could not authenticate")

	case errors.Is(err, auth.ErrInsufficientPrivileges):
		writeDetail(w, http.StatusForbidden, "insufficient privileges")

	case errors.Is(err, auth.ErrDuplicateRecord),
		errors.Is(err, devices.ErrDuplicateRecord):
		writeDetail(w, http.StatusConflict, "record already exists")

	case errors.Is(err, auth.ErrRecordNotFound),
		errors.Is(err, devices.ErrRecordNotFound):
		writeDetail(w, http.StatusNotFound, "record not found")

	case errors.Is(err, devices.ErrDeviceNotFound):
		writeDetail(w, http.StatusNotFound, "device not found")

	case errors.Is(err, devices.ErrDeviceInvalidState):
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, devices.ErrHueBridgeButtonNotPressed):
		writeDetail(w, http.StatusInternalServerError, "hue bridge link button not pressed")

	case errors.Is(err, devices.ErrDeviceAuthentication):
		writeDetail(w, http.StatusInternalServerError, "device authentication failed")

	case errors.Is(err, devices.ErrDeviceConnection),
		errors.Is(err, devices.ErrDeviceDiscovery):
		writeDetail(w, http.StatusBadGateway, "device unreachable")

	case errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, auth.ErrInvalidAccountType),
		errors.Is(err, room.ErrInvalidController),
		errors.Is(err, room.ErrInvalidName):
		writeDetail(w, http.StatusBadRequest, err.Error())

	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into v, rendering a 400 on failure.
// Returns false when the response has already been written.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
