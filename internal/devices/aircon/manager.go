package aircon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// Manager owns the process-wide registry of live AC handles, keyed by device
// ID. It is populated from storage at startup and grown by successful
// pairings; IDs are never reassigned.
type Manager struct {
	factory TransportFactory
	logger  *slog.Logger

	mu      sync.RWMutex
	handles map[string]*Handle
}

// NewManager creates an empty registry.
func NewManager(factory TransportFactory, logger *slog.Logger) *Manager {
	return &Manager{
		factory: factory,
		logger:  logger,
		handles: make(map[string]*Handle),
	}
}

// Add initialises a handle for the device and registers it.
func (m *Manager) Add(ctx context.Context, device Device) (*Handle, error) {
	handle := NewHandle(device, m.factory(device), m.logger)
	if err := handle.Initialise(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.handles[device.ID] = handle
	m.mu.Unlock()

	return handle, nil
}

// AddAll registers every device, skipping units that fail to initialise.
// A unit that is unreachable at startup keeps its database row but has no
// handle; Get on its ID fails until a restart finds it reachable.
func (m *Manager) AddAll(ctx context.Context, list []Device) {
	for _, device := range list {
		if _, err := m.Add(ctx, device); err != nil {
			m.logger.Warn("skipping unreachable ac unit",
				"device_id", device.ID,
				"device_name", device.Name,
				"error", err,
			)
		}
	}
}

// Get returns the live handle for a device ID.
func (m *Manager) Get(deviceID string) (*Handle, error) {
	m.mu.RLock()
	handle, ok := m.handles[deviceID]
	m.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: ac unit %q", devices.ErrDeviceNotFound, deviceID)
	}
	return handle, nil
}
