package aircon

import (
	"context"
	"log/slog"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// stateTopicFamily names this device family on the state-event bus.
const stateTopicFamily = "aircon"

// Service ties discovery, persistence and the live registry together.
type Service struct {
	repo      Repository
	manager   *Manager
	discovery *Discovery
	publisher devices.StatePublisher
	logger    *slog.Logger
}

// NewService creates the AC device service. publisher may be nil.
func NewService(repo Repository, manager *Manager, discovery *Discovery, publisher devices.StatePublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		manager:   manager,
		discovery: discovery,
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
	s.manager.AddAll(ctx, list)
	return nil
}

// Discover probes the network for units available to pair.
func (s *Service) Discover(ctx context.Context) ([]DiscoveryInfo, error) {
	return s.discovery.Discover(ctx)
}

// Create pairs a unit, persists its credentials and registers a live handle.
func (s *Service) Create(ctx context.Context, name string, info DiscoveryInfo) (*Device, error) {
	device, err := s.discovery.Pair(ctx, name, info)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, device); err != nil {
		return nil, err
	}

	if _, err := s.manager.Add(ctx, *device); err != nil {
		return nil, err
	}

	s.logger.Info("ac unit paired", "device_id", device.ID, "device_name", device.Name)
	return device, nil
}

// List returns all persisted device records.
func (s *Service) List(ctx context.Context) ([]Device, error) {
	return s.repo.List(ctx)
}

// GetState returns a unit's current state via its live handle.
func (s *Service) GetState(ctx context.Context, deviceID string) (State, error) {
	handle, err := s.manager.Get(deviceID)
	if err != nil {
		return State{}, err
	}

	state, err := handle.GetState(ctx)
	if err != nil {
		return State{}, err
	}

	s.publishState(deviceID, state)
	return state, nil
}

// UpdateState applies a partial state patch to a unit and returns the
// resulting state.
func (s *Service) UpdateState(ctx context.Context, deviceID string, patch StatePatch) (State, error) {
	handle, err := s.manager.Get(deviceID)
	if err != nil {
		return State{}, err
	}

	state, err := handle.ApplyState(ctx, patch)
	if err != nil {
		return State{}, err
	}

	s.publishState(deviceID, state)
	return state, nil
}

// publishState broadcasts a state snapshot, best-effort.
func (s *Service) publishState(deviceID string, state State) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishState(stateTopicFamily, deviceID, state); err != nil {
		s.logger.Warn("publishing ac state failed", "device_id", deviceID, "error", err)
	}
}
