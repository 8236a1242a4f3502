package mqtt

import (
	"encoding/json"
	"fmt"
)

// maxPayloadSize caps MQTT payloads at 1MB, aligning with typical broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// QoS levels: 0 at most once, 1 at least once, 2 exactly once. Retained
// messages are stored by the broker and delivered immediately to new
// subscribers - use for state topics, not events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishState publishes a device state snapshot, retained, at the configured
// QoS. The value is JSON-encoded.
//
// Example topic: homecontrol/state/aircon/3f2a…
func (c *Client) PublishState(family, deviceID string, state any) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encoding state: %w", ErrPublishFailed, err)
	}
	return c.Publish(Topics{}.DeviceState(family, deviceID), payload, byte(c.cfg.QoS), true)
}
