package aircon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// Retry budgets, tuned to the units' observed flakiness. Exceeding a budget
// is a definitive failure.
const (
	// authAttempts bounds authentication tries; the vendor cloud is
	// rate-sensitive and intermittent, so attempts are spaced by authDelay.
	authAttempts = 3
	authDelay    = time.Second

	// refreshAttempts bounds state refreshes when a required reading comes
	// back null.
	refreshAttempts = 3

	// applyAttempts bounds whole-apply retries on the transport's
	// "not ready" fault.
	applyAttempts = 3
)

// Handle is the live, authenticated representation of one AC unit.
//
// All operations are serialised behind a mutex: the display toggle is
// edge-triggered against the last observed state, which would race if two
// patches interleaved on the same unit.
type Handle struct {
	info      Device
	transport Transport
	logger    *slog.Logger

	mu sync.Mutex

	// lastState is the last full reading, used as the merge base for
	// patches so an obviously invalid patch can be rejected without
	// touching the unit.
	lastState *State
}

// NewHandle wraps a persisted device record and its transport. The handle is
// not usable until Initialise succeeds.
func NewHandle(info Device, transport Transport, logger *slog.Logger) *Handle {
	return &Handle{
		info:      info,
		transport: transport,
		logger:    logger.With("device_id", info.ID, "device_name", info.Name),
	}
}

// Info returns the persisted record backing this handle.
func (h *Handle) Info() Device {
	return h.info
}

// Initialise authenticates the session using the stored credentials.
// Authentication is retried with a fixed delay; the final failure is
// ErrDeviceAuthentication.
func (h *Handle) Initialise(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	attempt := 0
	op := func() error {
		attempt++
		if err := h.transport.Authenticate(ctx, h.info.Token, h.info.Key); err != nil {
			h.logger.Warn("authentication attempt failed", "attempt", attempt, "error", err)
			return err
		}
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(authDelay), authAttempts-1)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%w: authenticating %q: %w", devices.ErrDeviceAuthentication, h.info.Name, err)
	}

	h.logger.Info("ac unit authenticated")
	return nil
}

// refresh polls the unit until the required indoor reading is present,
// bounded by refreshAttempts. A persistent null reading means the unit is
// effectively unreachable.
func (h *Handle) refresh(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	op := func() error {
		s, err := h.transport.Refresh(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		if s.IndoorTemperature == nil {
			return errors.New("indoor temperature missing from reading")
		}
		snap = s
		return nil
	}

	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, refreshAttempts-1)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return Snapshot{}, fmt.Errorf("%w: refreshing %q: %w", devices.ErrDeviceConnection, h.info.Name, err)
	}

	return snap, nil
}

// currentState polls the unit and converts the reading to a full State.
//
// A reading where indoor and outdoor temperature are both exactly zero is
// usually a glitch, not a genuinely zero-degree day, so one extra refresh
// pass is taken before the reading is believed. Never more than one: if the
// second pass also says zero-zero, it is accepted as genuine.
func (h *Handle) currentState(ctx context.Context) (State, error) {
	snap, err := h.refresh(ctx)
	if err != nil {
		return State{}, err
	}

	if isDoubleZero(snap) {
		h.logger.Debug("double-zero temperature reading, refreshing once more")
		snap, err = h.refresh(ctx)
		if err != nil {
			return State{}, err
		}
	}

	state := snapshotToState(snap)
	h.lastState = &state
	return state, nil
}

// GetState returns the unit's current state.
func (h *Handle) GetState(ctx context.Context) (State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.currentState(ctx)
}

// ApplyState merges a partial patch onto the unit's current state, validates
// the merged target, and applies it. Validation failures never touch the
// unit. The display toggle is sent separately and only when the requested
// value differs from the current one.
func (h *Handle) ApplyState(ctx context.Context, patch StatePatch) (State, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Reject patches that are invalid on their face before any device I/O.
	if err := validatePatch(patch); err != nil {
		return State{}, err
	}

	current, err := h.mergeBase(ctx)
	if err != nil {
		return State{}, err
	}

	target := patch.merge(current)
	if err := validateTarget(target); err != nil {
		return State{}, err
	}

	settings := Settings{
		Power:             target.Power,
		TargetTemperature: target.TargetTemperature,
		OperationalMode:   target.OperationalMode,
		FanSpeed:          target.FanSpeed,
		SwingMode:         target.SwingMode,
		EcoMode:           target.EcoMode,
		TurboMode:         target.TurboMode,
		Rate:              target.Rate,
		Fahrenheit:        target.Fahrenheit,
	}
	if patch.Beep != nil {
		settings.Beep = *patch.Beep
	}

	if err := h.apply(ctx, settings); err != nil {
		return State{}, err
	}

	// Edge-triggered: the display is a momentary command, not a persisted
	// attribute, so it is only toggled when the requested value differs.
	if patch.DisplayOn != nil && *patch.DisplayOn != current.DisplayOn {
		if err := h.transport.ToggleDisplay(ctx); err != nil {
			return State{}, fmt.Errorf("%w: toggling display on %q: %w", devices.ErrDeviceConnection, h.info.Name, err)
		}
	}

	return h.currentState(ctx)
}

// apply sends settings to the unit, retrying the whole apply on the
// transport's "not ready" fault.
func (h *Handle) apply(ctx context.Context, settings Settings) error {
	attempt := 0
	op := func() error {
		attempt++
		err := h.transport.Apply(ctx, settings)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrNotReady) {
			h.logger.Warn("unit not ready, retrying apply", "attempt", attempt)
			return err
		}
		return backoff.Permanent(err)
	}

	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, applyAttempts-1)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%w: applying state to %q: %w", devices.ErrDeviceAuthentication, h.info.Name, err)
	}
	return nil
}

// mergeBase returns the state a patch is merged onto: the cached last
// reading when one exists, else a fresh poll.
func (h *Handle) mergeBase(ctx context.Context) (State, error) {
	if h.lastState != nil {
		return *h.lastState, nil
	}
	return h.currentState(ctx)
}

// validatePatch checks the constraints decidable from the patch alone.
func validatePatch(patch StatePatch) error {
	if patch.TargetTemperature != nil &&
		(*patch.TargetTemperature < MinTargetTemperature || *patch.TargetTemperature > MaxTargetTemperature) {
		return fmt.Errorf("%w: target temperature %.1f outside %.0f-%.0f",
			devices.ErrDeviceInvalidState, *patch.TargetTemperature, MinTargetTemperature, MaxTargetTemperature)
	}
	if patch.EcoMode != nil && patch.TurboMode != nil && *patch.EcoMode && *patch.TurboMode {
		return fmt.Errorf("%w: eco and turbo modes are mutually exclusive", devices.ErrDeviceInvalidState)
	}
	return nil
}

// validateTarget checks the merged target against the unit's domain
// constraints.
func validateTarget(target State) error {
	if target.TargetTemperature < MinTargetTemperature || target.TargetTemperature > MaxTargetTemperature {
		return fmt.Errorf("%w: target temperature %.1f outside %.0f-%.0f",
			devices.ErrDeviceInvalidState, target.TargetTemperature, MinTargetTemperature, MaxTargetTemperature)
	}
	if target.EcoMode && target.TurboMode {
		return fmt.Errorf("%w: eco and turbo modes are mutually exclusive", devices.ErrDeviceInvalidState)
	}
	return nil
}

// isDoubleZero reports whether both temperature readings are the sentinel
// zero value.
func isDoubleZero(snap Snapshot) bool {
	return snap.IndoorTemperature != nil && *snap.IndoorTemperature == 0 &&
		snap.OutdoorTemperature != nil && *snap.OutdoorTemperature == 0
}

// snapshotToState converts a raw reading to the public state shape.
// The display reads as off whenever the unit is powered down.
func snapshotToState(snap Snapshot) State {
	state := State{
		Power:             snap.Power,
		TargetTemperature: snap.TargetTemperature,
		OperationalMode:   snap.OperationalMode,
		FanSpeed:          snap.FanSpeed,
		SwingMode:         snap.SwingMode,
		EcoMode:           snap.EcoMode,
		TurboMode:         snap.TurboMode,
		Rate:              snap.Rate,
		Fahrenheit:        snap.Fahrenheit,
		DisplayOn:         snap.DisplayOn && snap.Power,
	}
	if snap.IndoorTemperature != nil {
		state.IndoorTemperature = *snap.IndoorTemperature
	}
	if snap.OutdoorTemperature != nil {
		state.OutdoorTemperature = *snap.OutdoorTemperature
	}
	return state
}
