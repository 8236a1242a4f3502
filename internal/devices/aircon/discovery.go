package aircon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

// discoveryAttempts bounds broadcast probes. An empty result is treated as
// flaky and retried; a transport error is not, since it will not recover
// within the retry window.
const discoveryAttempts = 3

// errNothingFound marks an empty probe result as retryable inside a policy.
var errNothingFound = errors.New("no units answered")

// Discovery probes the local network for AC units.
type Discovery struct {
	discoverer Discoverer
	logger     *slog.Logger
}

// NewDiscovery creates a discovery service over the given prober.
func NewDiscovery(discoverer Discoverer, logger *slog.Logger) *Discovery {
	return &Discovery{discoverer: discoverer, logger: logger}
}

// Discover broadcasts for units and returns their descriptors.
// Empty results are retried up to the attempt budget; an empty final result
// is returned as-is (no units is a valid answer after the retries).
func (d *Discovery) Discover(ctx context.Context) ([]DiscoveryInfo, error) {
	var found []DiscoveryInfo

	attempt := 0
	op := func() error {
		attempt++
		units, err := d.discoverer.Discover(ctx)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("%w: %w", devices.ErrDeviceDiscovery, err))
		}
		if len(units) == 0 {
			d.logger.Debug("discovery returned no units", "attempt", attempt)
			return errNothingFound
		}
		found = units
		return nil
	}

	policy := backoff.WithMaxRetries(&backoff.ZeroBackOff{}, discoveryAttempts-1)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		if errors.Is(err, errNothingFound) {
			return []DiscoveryInfo{}, nil
		}
		return nil, err
	}

	return found, nil
}

// Pair probes a single address and exchanges long-lived credentials for it,
// returning an unsaved device record. A unit that never answers is
// ErrDeviceNotFound and a probe error is ErrDeviceConnection immediately. A
// failing cloud exchange is retried under the authentication policy, since
// the vendor cloud shares the units' flakiness; spending that budget is
// ErrDeviceAuthentication.
func (d *Discovery) Pair(ctx context.Context, name string, info DiscoveryInfo) (*Device, error) {
	var result *PairingResult

	attempt := 0
	op := func() error {
		attempt++
		r, err := d.discoverer.DiscoverSingle(ctx, info.IPAddress)
		switch {
		case err != nil && errors.Is(err, ErrCredentialExchange):
			d.logger.Warn("credential exchange failed", "attempt", attempt, "error", err)
			return err
		case err != nil:
			return backoff.Permanent(fmt.Errorf("%w: probing %s: %w", devices.ErrDeviceConnection, info.IPAddress, err))
		case r == nil || r.Key == "" || r.Token == "":
			return errNothingFound
		}
		result = r
		return nil
	}

	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(authDelay), authAttempts-1)
	if err := backoff.Retry(op, backoff.WithContext(policy, ctx)); err != nil {
		switch {
		case errors.Is(err, errNothingFound):
			return nil, fmt.Errorf("%w: no unit answered at %s", devices.ErrDeviceNotFound, info.IPAddress)
		case errors.Is(err, ErrCredentialExchange):
			return nil, fmt.Errorf("%w: pairing %s: %w", devices.ErrDeviceAuthentication, info.IPAddress, err)
		}
		return nil, err
	}

	return &Device{
		Name:       name,
		IPAddress:  info.IPAddress,
		Port:       result.Port,
		Identifier: result.Identifier,
		Key:        result.Key,
		Token:      result.Token,
	}, nil
}
