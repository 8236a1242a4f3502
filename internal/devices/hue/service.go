package hue

import (
	"context"
	"crypto/x509"
	"log/slog"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// stateTopicFamily names this device family on the state-event bus.
const stateTopicFamily = "hue"

// Pairer performs the button-press handshake against one bridge.
type Pairer interface {
	GenerateClientKey(ctx context.Context) (username, clientKey string, err error)
}

// PairerFactory builds a pairer for a discovered, not-yet-trusted bridge.
type PairerFactory func(info DiscoveryInfo) Pairer

// NewPairerFactory returns the production pairer: an unauthenticated client
// pinned to the discovered bridge's serial.
func NewPairerFactory(rootCAs *x509.CertPool) PairerFactory {
	return func(info DiscoveryInfo) Pairer {
		return NewClient(info.IPAddress, info.Port, info.Identifier, rootCAs)
	}
}

// Service ties discovery, pairing, persistence and the live registry together.
type Service struct {
	repo      Repository
	manager   *Manager
	discovery *Discovery
	pairer    PairerFactory
	publisher devices.StatePublisher
	logger    *slog.Logger
}

// NewService creates the Hue bridge service. publisher may be nil.
func NewService(repo Repository, manager *Manager, discovery *Discovery, pairer PairerFactory, publisher devices.StatePublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		manager:   manager,
		discovery: discovery,
		pairer:    pairer,
		publisher: publisher,
		logger:    logger,
	}
}

// LoadAll rebuilds the live registry from storage. Called once at startup.
func (s *Service) LoadAll(ctx context.Context) error {
	list, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	s.manager.AddAll(list)
	return nil
}

// Discover probes for bridges available to pair.
func (s *Service) Discover(ctx context.Context) ([]DiscoveryInfo, error) {
	return s.discovery.Discover(ctx)
}

// Create pairs a bridge, persists its credentials and registers a live
// handle. The caller must have pressed the bridge's link button first;
// until then pairing fails ErrHueBridgeButtonNotPressed and can simply be
// retried.
func (s *Service) Create(ctx context.Context, name string, info DiscoveryInfo) (*Bridge, error) {
	username, clientKey, err := s.pairer(info).GenerateClientKey(ctx)
	if err != nil {
		return nil, err
	}

	bridge := &Bridge{
		Name:       name,
		IPAddress:  info.IPAddress,
		Port:       info.Port,
		Identifier: info.Identifier,
		Username:   username,
		ClientKey:  clientKey,
	}
	if err := s.repo.Create(ctx, bridge); err != nil {
		return nil, err
	}

	s.manager.Add(*bridge)
	s.logger.Info("hue bridge paired", "bridge_id", bridge.ID, "bridge_name", bridge.Name)
	return bridge, nil
}

// List returns all persisted bridge records.
func (s *Service) List(ctx context.Context) ([]Bridge, error) {
	return s.repo.List(ctx)
}

// Rooms lists the rooms configured on a bridge.
func (s *Service) Rooms(ctx context.Context, bridgeID string) ([]RoomSummary, error) {
	handle, err := s.manager.Get(bridgeID)
	if err != nil {
		return nil, err
	}
	return handle.Rooms().Rooms(ctx)
}

// GetRoomState reads a room's full live state.
func (s *Service) GetRoomState(ctx context.Context, bridgeID, roomID string) (RoomState, error) {
	handle, err := s.manager.Get(bridgeID)
	if err != nil {
		return RoomState{}, err
	}

	state, err := handle.Rooms().RoomState(ctx, roomID)
	if err != nil {
		return RoomState{}, err
	}

	s.publishState(bridgeID, roomID, state)
	return state, nil
}

// UpdateRoomState applies a partial room patch and returns the resulting
// state.
func (s *Service) UpdateRoomState(ctx context.Context, bridgeID, roomID string, patch RoomStatePatch) (RoomState, error) {
	handle, err := s.manager.Get(bridgeID)
	if err != nil {
		return RoomState{}, err
	}

	state, err := handle.Rooms().ApplyRoomState(ctx, roomID, patch)
	if err != nil {
		return RoomState{}, err
	}

	s.publishState(bridgeID, roomID, state)
	return state, nil
}

// publishState broadcasts a room state snapshot, best-effort.
func (s *Service) publishState(bridgeID, roomID string, state RoomState) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishState(stateTopicFamily, bridgeID+"/"+roomID, state); err != nil {
		s.logger.Warn("publishing hue room state failed",
			"bridge_id", bridgeID, "room_id", roomID, "error", err)
	}
}
