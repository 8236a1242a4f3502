package hue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/joeldcross/homecontrol-core/internal/devices"
)

const (
	// mdnsService is the bridge's advertised mDNS service.
	mdnsService = "_hue._tcp"
	mdnsDomain  = "local."

	// mdnsBrowseWindow is how long a browse collects answers.
	mdnsBrowseWindow = 5 * time.Second

	// defaultBridgePort is the bridge's HTTPS port when a discovery source
	// does not report one.
	defaultBridgePort = 443

	relayTimeout = 10 * time.Second
)

// Discovery finds Hue bridges, either by browsing mDNS on the local network
// or by asking the vendor's public discovery relay (which reports bridges
// that have phoned home from this external IP). mDNS is preferred but does
// not reach across some container/VM network setups, hence the switch.
type Discovery struct {
	useMDNS  bool
	relayURL string
	http     *http.Client
	logger   *slog.Logger
}

// NewDiscovery creates a bridge discovery service.
func NewDiscovery(useMDNS bool, relayURL string, logger *slog.Logger) *Discovery {
	return &Discovery{
		useMDNS:  useMDNS,
		relayURL: relayURL,
		http:     &http.Client{Timeout: relayTimeout},
		logger:   logger,
	}
}

// Discover returns descriptors for every bridge found. An empty result is not
// an error.
func (d *Discovery) Discover(ctx context.Context) ([]DiscoveryInfo, error) {
	if d.useMDNS {
		return d.discoverMDNS(ctx)
	}
	return d.discoverRelay(ctx)
}

// discoverMDNS browses the local network for the bridge service and reads
// each answer's bridgeid TXT record.
func (d *Discovery) discoverMDNS(ctx context.Context) ([]DiscoveryInfo, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: initialising mdns resolver: %w", devices.ErrDeviceDiscovery, err)
	}

	browseCtx, cancel := context.WithTimeout(ctx, mdnsBrowseWindow)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := resolver.Browse(browseCtx, mdnsService, mdnsDomain, entries); err != nil {
		return nil, fmt.Errorf("%w: browsing for bridges: %w", devices.ErrDeviceDiscovery, err)
	}

	var found []DiscoveryInfo
	for entry := range entries {
		info, ok := parseMDNSEntry(entry)
		if !ok {
			d.logger.Debug("ignoring mdns answer without bridge id", "instance", entry.Instance)
			continue
		}
		found = append(found, info)
	}

	return found, nil
}

// parseMDNSEntry extracts a bridge descriptor from an mDNS answer.
func parseMDNSEntry(entry *zeroconf.ServiceEntry) (DiscoveryInfo, bool) {
	var bridgeID string
	for _, txt := range entry.Text {
		if v, ok := strings.CutPrefix(txt, "bridgeid="); ok {
			bridgeID = v
			break
		}
	}
	if bridgeID == "" || len(entry.AddrIPv4) == 0 {
		return DiscoveryInfo{}, false
	}

	port := entry.Port
	if port == 0 {
		port = defaultBridgePort
	}

	return DiscoveryInfo{
		Identifier: strings.ToLower(bridgeID),
		IPAddress:  entry.AddrIPv4[0].String(),
		Port:       port,
	}, true
}

// discoverRelay asks the vendor's public discovery endpoint.
func (d *Discovery) discoverRelay(ctx context.Context) ([]DiscoveryInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.relayURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building relay request: %w", err)
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: querying discovery relay: %w", devices.ErrDeviceDiscovery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: discovery relay returned %d", devices.ErrDeviceDiscovery, resp.StatusCode)
	}

	var entries []struct {
		ID                string `json:"id"`
		InternalIPAddress string `json:"internalipaddress"`
		Port              int    `json:"port"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: decoding relay response: %w", devices.ErrDeviceDiscovery, err)
	}

	found := make([]DiscoveryInfo, 0, len(entries))
	for _, entry := range entries {
		port := entry.Port
		if port == 0 {
			port = defaultBridgePort
		}
		found = append(found, DiscoveryInfo{
			Identifier: strings.ToLower(entry.ID),
			IPAddress:  entry.InternalIPAddress,
			Port:       port,
		})
	}

	return found, nil
}
