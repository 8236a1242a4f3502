// Package room composes physical devices into user-defined rooms. A room
// owns a list of controller bindings, stored as tagged variants; deleting a
// referenced device does not cascade, so a binding can dangle and surfaces as
// a runtime lookup failure.
package room

import (
	"errors"
	"fmt"
)

// Controller variant tags.
const (
	ControllerACDevice = "ac_device"
	ControllerHueRoom  = "hue_room"
)

var (
	ErrInvalidController = errors.New("room: invalid controller")
	ErrInvalidName       = errors.New("room: invalid name")
)

// Controller is a tagged binding from a room to one controllable thing:
// either a paired AC unit or one Hue room on a paired bridge.
type Controller struct {
	Type     string `json:"type"`
	DeviceID string `json:"device_id,omitempty"`
	BridgeID string `json:"bridge_id,omitempty"`
	RoomID   string `json:"room_id,omitempty"`
}

// Validate checks the tag and the fields the tag requires.
func (c Controller) Validate() error {
	switch c.Type {
	case ControllerACDevice:
		if c.DeviceID == "" {
			return fmt.Errorf("%w: ac_device controller requires device_id", ErrInvalidController)
		}
		if c.BridgeID != "" || c.RoomID != "" {
			return fmt.Errorf("%w: ac_device controller carries hue fields", ErrInvalidController)
		}
	case ControllerHueRoom:
		if c.BridgeID == "" || c.RoomID == "" {
			return fmt.Errorf("%w: hue_room controller requires bridge_id and room_id", ErrInvalidController)
		}
		if c.DeviceID != "" {
			return fmt.Errorf("%w: hue_room controller carries device_id", ErrInvalidController)
		}
	default:
		return fmt.Errorf("%w: unknown controller type %q", ErrInvalidController, c.Type)
	}
	return nil
}

// Room is a persisted composition of controllers.
type Room struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Controllers []Controller `json:"controllers"`
}
