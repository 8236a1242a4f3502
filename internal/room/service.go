package room

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
	"github.com/joeldcross/homecontrol-core/internal/devices/hue"
)

// ACStates reads live AC unit state.
type ACStates interface {
	GetState(ctx context.Context, deviceID string) (aircon.State, error)
}

// HueRoomStates reads live Hue room state.
type HueRoomStates interface {
	GetRoomState(ctx context.Context, bridgeID, roomID string) (hue.RoomState, error)
}

// ControllerState is one controller binding resolved to its live state.
// Exactly one of AC and Hue is set, matching the binding's tag.
type ControllerState struct {
	Controller Controller     `json:"controller"`
	AC         *aircon.State  `json:"ac_state,omitempty"`
	Hue        *hue.RoomState `json:"hue_state,omitempty"`
}

// State is a room with every controller resolved.
type State struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Controllers []ControllerState `json:"controllers"`
}

// Service manages composed rooms and resolves their controllers to live
// device state.
type Service struct {
	repo   Repository
	ac     ACStates
	hue    HueRoomStates
	logger *slog.Logger
}

// NewService creates the room service.
func NewService(repo Repository, ac ACStates, hueRooms HueRoomStates, logger *slog.Logger) *Service {
	return &Service{repo: repo, ac: ac, hue: hueRooms, logger: logger}
}

// Create validates the controller bindings and persists the room. Bindings
// are validated for shape only: whether the referenced device actually exists
// is a runtime concern, checked on every state resolution, because a device
// can be deleted after the room was composed.
func (s *Service) Create(ctx context.Context, name string, controllers []Controller) (*Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrInvalidName)
	}
	for i, controller := range controllers {
		if err := controller.Validate(); err != nil {
			return nil, fmt.Errorf("controller %d: %w", i, err)
		}
	}

	room := &Room{Name: name, Controllers: controllers}
	if err := s.repo.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.Info("room created", "room_id", room.ID, "room_name", room.Name,
		"controllers", len(room.Controllers))
	return room, nil
}

// List returns all rooms.
func (s *Service) List(ctx context.Context) ([]Room, error) {
	return s.repo.List(ctx)
}

// Get returns one room.
func (s *Service) Get(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

// Delete removes a room.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// GetState resolves every controller in a room to its live device state. A
// dangling binding (device deleted or unreachable since composition) fails
// the whole resolution with the device family's own error.
func (s *Service) GetState(ctx context.Context, id string) (*State, error) {
	room, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	state := &State{
		ID:          room.ID,
		Name:        room.Name,
		Controllers: make([]ControllerState, 0, len(room.Controllers)),
	}

	for _, controller := range room.Controllers {
		resolved := ControllerState{Controller: controller}

		switch controller.Type {
		case ControllerACDevice:
			acState, err := s.ac.GetState(ctx, controller.DeviceID)
			if err != nil {
				return nil, fmt.Errorf("room %q: ac device %q: %w", room.Name, controller.DeviceID, err)
			}
			resolved.AC = &acState
		case ControllerHueRoom:
			hueState, err := s.hue.GetRoomState(ctx, controller.BridgeID, controller.RoomID)
			if err != nil {
				return nil, fmt.Errorf("room %q: hue room %q: %w", room.Name, controller.RoomID, err)
			}
			resolved.Hue = &hueState
		default:
			// Stored before a tag was retired, or written by hand.
			return nil, fmt.Errorf("room %q: %w: unknown controller type %q",
				room.Name, ErrInvalidController, controller.Type)
		}

		state.Controllers = append(state.Controllers, resolved)
	}

	return state, nil
}
