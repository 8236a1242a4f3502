package hue

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// Handle is the live representation of one paired bridge: its record plus a
// room controller over an authenticated client.
type Handle struct {
	bridge Bridge
	rooms  *RoomController
}

// Info returns the persisted record backing this handle.
func (h *Handle) Info() Bridge {
	return h.bridge
}

// Rooms returns the handle's room controller.
func (h *Handle) Rooms() *RoomController {
	return h.rooms
}

// Manager owns the process-wide registry of live bridge handles, keyed by
// bridge ID. Populated from storage at startup, grown by pairings; IDs are
// never reassigned.
type Manager struct {
	factory ClientFactory
	logger  *slog.Logger

	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewManager creates an empty registry.
func NewManager(factory ClientFactory, logger *slog.Logger) *Manager {
	return &Manager{
		factory: factory,
		logger:  logger,
		handles: make(map[string]*Handle),
	}
}

// Add builds a handle for the bridge and registers it. Unlike the AC family
// there is no session handshake: the stored application key authenticates
// every request, so registration cannot fail on an unreachable bridge.
func (m *Manager) Add(bridge Bridge) *Handle {
	handle := &Handle{
		bridge: bridge,
		rooms: NewRoomController(m.factory(bridge),
			m.logger.With("bridge_id", bridge.ID, "bridge_name", bridge.Name)),
	}

	m.mu.Lock()
	m.handles[bridge.ID] = handle
	m.mu.Unlock()

	return handle
}

// AddAll registers every persisted bridge.
func (m *Manager) AddAll(list []Bridge) {
	for _, bridge := range list {
		m.Add(bridge)
	}
}

// Get returns the live handle for a bridge ID.
func (m *Manager) Get(bridgeID string) (*Handle, error) {
	m.mu.RLock()
	handle, ok := m.handles[bridgeID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: hue bridge %q", devices.ErrDeviceNotFound, bridgeID)
	}
	return handle, nil
}
