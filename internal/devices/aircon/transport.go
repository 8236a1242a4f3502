package aircon

import (
	"context"
	"errors"
)

// ErrNotReady is the transport's low-level "device not ready" fault. Applying
// a state is retried on it; anything else propagates immediately.
var ErrNotReady = errors.New("aircon: device not ready")

// ErrCredentialExchange marks a pairing failure in the vendor-cloud
// credential exchange after the unit itself answered the probe. The cloud is
// rate-sensitive, so these are retried where a probe fault is fatal.
var ErrCredentialExchange = errors.New("aircon: credential exchange failed")

// Snapshot is a raw reading from the unit. Temperatures are pointers because
// a flaky refresh can legitimately come back without them.
type Snapshot struct {
	Power              bool
	TargetTemperature  float64
	OperationalMode    OperationalMode
	FanSpeed           FanSpeed
	SwingMode          SwingMode
	EcoMode            bool
	TurboMode          bool
	Rate               Rate
	Fahrenheit         bool
	DisplayOn          bool
	IndoorTemperature  *float64
	OutdoorTemperature *float64
}

// Settings carries the writable fields sent to the unit in one apply.
type Settings struct {
	Power             bool
	TargetTemperature float64
	OperationalMode   OperationalMode
	FanSpeed          FanSpeed
	SwingMode         SwingMode
	EcoMode           bool
	TurboMode         bool
	Rate              Rate
	Fahrenheit        bool
	Beep              bool
}

// Transport is the vendor LAN protocol boundary for a single unit.
// Implementations are not required to be safe for concurrent use; the Handle
// serialises access.
type Transport interface {
	// Authenticate establishes a session using the long-lived token/key
	// pair obtained at pairing time.
	Authenticate(ctx context.Context, token, key string) error

	// Refresh polls the unit and returns its current reading.
	Refresh(ctx context.Context) (Snapshot, error)

	// Apply sends a full set of writable settings. Returns ErrNotReady
	// (possibly wrapped) when the unit cannot accept commands yet.
	Apply(ctx context.Context, settings Settings) error

	// ToggleDisplay sends the momentary display on/off command. The vendor
	// API models the display as an action, not a settable attribute.
	ToggleDisplay(ctx context.Context) error
}

// TransportFactory builds a transport for a persisted device record.
type TransportFactory func(device Device) Transport

// Discoverer probes the local network for units and performs the single-unit
// pairing handshake against the vendor cloud.
type Discoverer interface {
	// Discover broadcasts for units and returns descriptors without
	// establishing trust. An empty result is not an error.
	Discover(ctx context.Context) ([]DiscoveryInfo, error)

	// DiscoverSingle probes one address and exchanges long-lived pairing
	// credentials for it. Returns nil (no error) when the unit did not
	// answer.
	DiscoverSingle(ctx context.Context, ipAddress string) (*PairingResult, error)
}
