package mqtt

import "fmt"

// Topic scheme: homecontrol/{category}/{family}/{id}
const (
	// TopicPrefix is the base for all homecontrol topics.
	TopicPrefix = "homecontrol"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "homecontrol/system"
)

// Topics provides builders for homecontrol MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// DeviceState returns the topic for state snapshots of a device.
//
// Example: homecontrol/state/aircon/4f1c9b22
func (Topics) DeviceState(family, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, family, deviceID)
}

// SystemStatus returns the topic for the service's online/offline status.
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}
