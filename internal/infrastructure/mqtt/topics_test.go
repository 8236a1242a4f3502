package mqtt

import "testing"

func TestTopicsDeviceState(t *testing.T) {
	got := Topics{}.DeviceState("aircon", "4f1c9b22")
	want := "homecontrol/state/aircon/4f1c9b22"
	if got != want {
		t.Errorf("DeviceState() = %q, want %q", got, want)
	}
}

func TestTopicsSystemStatus(t *testing.T) {
	got := Topics{}.SystemStatus()
	if got != "homecontrol/system/status" {
		t.Errorf("SystemStatus() = %q, want homecontrol/system/status", got)
	}
}

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	if err := c.Publish("", []byte("x"), 0, false); err != ErrInvalidTopic {
		t.Errorf("empty topic: got %v, want ErrInvalidTopic", err)
	}
	if err := c.Publish("homecontrol/state/aircon/1", []byte("x"), 3, false); err != ErrInvalidQoS {
		t.Errorf("qos 3: got %v, want ErrInvalidQoS", err)
	}
}
