package devices

import "errors"

// Domain-specific errors for device operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrDeviceConnection is returned on a transport-level failure while
	// talking to a physical device.
	ErrDeviceConnection = errors.New("device connection failed")

	// ErrDeviceDiscovery is returned when a network discovery probe fails.
	ErrDeviceDiscovery = errors.New("device discovery failed")

	// ErrDeviceNotFound is returned when a device is absent from the
	// in-memory registry or discovery yielded nothing usable. Distinct from
	// ErrRecordNotFound: a device row can exist in storage while its handle
	// failed to initialise at startup.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrDeviceAuthentication is returned when a pairing handshake fails
	// after its retry budget.
	ErrDeviceAuthentication = errors.New("device authentication failed")

	// ErrDeviceInvalidState is returned when a requested state patch
	// violates a device's domain constraints. The device is never touched.
	ErrDeviceInvalidState = errors.New("invalid device state")

	// ErrHueBridgeButtonNotPressed is a distinguished pairing failure: the
	// bridge requires its physical link button pressed first. Retryable by
	// the user, not fatal.
	ErrHueBridgeButtonNotPressed = errors.New("hue bridge button not pressed")

	// ErrDuplicateRecord is returned on a unique-constraint violation when
	// persisting a device or room.
	ErrDuplicateRecord = errors.New("record already exists")

	// ErrRecordNotFound is returned on a storage lookup miss.
	ErrRecordNotFound = errors.New("record not found")
)
