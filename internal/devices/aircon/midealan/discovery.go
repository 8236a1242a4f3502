package midealan

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
)

// discoveryWindow is how long a broadcast probe collects replies.
const discoveryWindow = 3 * time.Second

// discoveryProbe is the fixed broadcast payload units answer to.
var discoveryProbe = []byte{
	0x5a, 0x5a, 0x01, 0x11, 0x48, 0x00, 0x92, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// Discoverer finds units via UDP broadcast and pairs them through the vendor
// cloud, which issues the long-lived token/key credentials.
type Discoverer struct {
	cloud *CloudClient
}

var _ aircon.Discoverer = (*Discoverer)(nil)

// NewDiscoverer creates a discoverer. Pairing requires vendor cloud
// credentials; plain discovery does not use them.
func NewDiscoverer(cloud *CloudClient) *Discoverer {
	return &Discoverer{cloud: cloud}
}

// Discover broadcasts a probe and collects unit descriptors for a fixed
// window. An empty result is not an error.
func (d *Discoverer) Discover(ctx context.Context) ([]aircon.DiscoveryInfo, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("opening discovery socket: %w", err)
	}
	defer conn.Close()

	target := &net.UDPAddr{IP: net.IPv4bcast, Port: discoveryPort}
	if _, err := conn.WriteToUDP(discoveryProbe, target); err != nil {
		return nil, fmt.Errorf("broadcasting probe: %w", err)
	}

	deadline := time.Now().Add(discoveryWindow)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	var found []aircon.DiscoveryInfo
	seen := make(map[int64]bool)
	buf := make([]byte, 512)
	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				break // window closed
			}
			return nil, fmt.Errorf("reading discovery reply: %w", err)
		}

		info, ok := parseDiscoveryReply(buf[:n], addr)
		if !ok || seen[info.Identifier] {
			continue
		}
		seen[info.Identifier] = true
		found = append(found, info)
	}

	return found, nil
}

// DiscoverSingle probes one address directly and exchanges long-lived
// credentials for the answering unit. Returns nil when nothing answers.
func (d *Discoverer) DiscoverSingle(ctx context.Context, ipAddress string) (*aircon.PairingResult, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{})
	if err != nil {
		return nil, fmt.Errorf("opening discovery socket: %w", err)
	}
	defer conn.Close()

	target := &net.UDPAddr{IP: net.ParseIP(ipAddress), Port: discoveryPort}
	if target.IP == nil {
		return nil, fmt.Errorf("invalid ip address %q", ipAddress)
	}
	if _, err := conn.WriteToUDP(discoveryProbe, target); err != nil {
		return nil, fmt.Errorf("probing %s: %w", ipAddress, err)
	}

	deadline := time.Now().Add(discoveryWindow)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	buf := make([]byte, 512)
	n, addr, err := conn.ReadFromUDP(buf)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, nil // nothing answered
		}
		return nil, fmt.Errorf("reading discovery reply: %w", err)
	}

	info, ok := parseDiscoveryReply(buf[:n], addr)
	if !ok {
		return nil, nil
	}

	token, key, err := d.cloud.GetToken(ctx, info.Identifier)
	if err != nil {
		return nil, fmt.Errorf("%w: obtaining pairing credentials: %w", aircon.ErrCredentialExchange, err)
	}

	return &aircon.PairingResult{
		IPAddress:  info.IPAddress,
		Port:       info.Port,
		Identifier: info.Identifier,
		Key:        key,
		Token:      token,
	}, nil
}

// parseDiscoveryReply extracts a descriptor from a discovery reply frame.
func parseDiscoveryReply(frame []byte, addr *net.UDPAddr) (aircon.DiscoveryInfo, bool) {
	if len(frame) < 32 || binary.BigEndian.Uint16(frame[0:2]) != frameMagic {
		return aircon.DiscoveryInfo{}, false
	}

	id := decodeDeviceID(frame)
	if id == 0 {
		return aircon.DiscoveryInfo{}, false
	}

	port := int(binary.LittleEndian.Uint16(frame[28:30]))
	if port == 0 {
		port = devicePort
	}

	return aircon.DiscoveryInfo{
		IPAddress:  addr.IP.String(),
		Port:       port,
		Identifier: id,
	}, true
}
