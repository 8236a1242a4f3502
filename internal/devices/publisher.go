package devices

// StatePublisher broadcasts device state snapshots to interested observers
// (the MQTT publisher in production). Implementations must be safe for
// concurrent use. A nil publisher means state events are not broadcast.
type StatePublisher interface {
	PublishState(family, deviceID string, state any) error
}
