package midealan

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net"
	"time"

	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
)

// Session timeouts. The units answer on a LAN, so these are generous.
const (
	dialTimeout  = 5 * time.Second
	replyTimeout = 8 * time.Second
)

// Status/command message types within a frame body.
const (
	msgTypeHandshake = 0x68
	msgTypeQuery     = 0x41
	msgTypeSet       = 0x40
)

// notReadyStatus is the unit's "busy, retry" reply code.
const notReadyStatus = 0x07

// Transport is a framed TCP session to one unit. Not safe for concurrent
// use; the aircon.Handle serialises access.
type Transport struct {
	address  string
	deviceID int64

	conn net.Conn
}

var _ aircon.Transport = (*Transport)(nil)

// NewFactory returns an aircon.TransportFactory producing LAN transports.
func NewFactory() aircon.TransportFactory {
	return func(device aircon.Device) aircon.Transport {
		return &Transport{
			address:  net.JoinHostPort(device.IPAddress, fmt.Sprintf("%d", device.Port)),
			deviceID: device.Identifier,
		}
	}
}

// Authenticate dials the unit and performs the token/key handshake.
func (t *Transport) Authenticate(ctx context.Context, token, key string) error {
	rawToken, err := hex.DecodeString(token)
	if err != nil {
		return fmt.Errorf("decoding token: %w", err)
	}
	rawKey, err := hex.DecodeString(key)
	if err != nil {
		return fmt.Errorf("decoding key: %w", err)
	}

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.address)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", t.address, err)
	}

	body := make([]byte, 0, 1+len(rawToken)+len(rawKey))
	body = append(body, msgTypeHandshake)
	body = append(body, rawToken...)
	body = append(body, rawKey...)

	if _, err := t.roundTripOn(ctx, conn, body); err != nil {
		conn.Close()
		return fmt.Errorf("handshake: %w", err)
	}

	if t.conn != nil {
		t.conn.Close()
	}
	t.conn = conn
	return nil
}

// Refresh queries the unit's status and decodes the reading.
func (t *Transport) Refresh(ctx context.Context) (aircon.Snapshot, error) {
	reply, err := t.roundTrip(ctx, buildQueryBody())
	if err != nil {
		return aircon.Snapshot{}, err
	}
	return decodeStatus(reply)
}

// Apply sends a full settings command.
func (t *Transport) Apply(ctx context.Context, settings aircon.Settings) error {
	reply, err := t.roundTrip(ctx, buildSetBody(settings))
	if err != nil {
		return err
	}
	if len(reply) > 1 && reply[1] == notReadyStatus {
		return aircon.ErrNotReady
	}
	return nil
}

// ToggleDisplay sends the momentary display command.
func (t *Transport) ToggleDisplay(ctx context.Context) error {
	_, err := t.roundTrip(ctx, buildDisplayToggleBody())
	return err
}

// Close tears down the session.
func (t *Transport) Close() error {
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// roundTrip frames, sends and awaits a reply on the established session.
func (t *Transport) roundTrip(ctx context.Context, body []byte) ([]byte, error) {
	if t.conn == nil {
		return nil, fmt.Errorf("session not established")
	}
	return t.roundTripOn(ctx, t.conn, body)
}

func (t *Transport) roundTripOn(ctx context.Context, conn net.Conn, body []byte) ([]byte, error) {
	frame, err := buildFrame(t.deviceID, body)
	if err != nil {
		return nil, err
	}

	deadline := time.Now().Add(replyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return nil, fmt.Errorf("setting deadline: %w", err)
	}

	if _, err := conn.Write(frame); err != nil {
		return nil, fmt.Errorf("writing frame: %w", err)
	}

	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("reading reply: %w", err)
	}

	return parseFrame(buf[:n])
}

// buildQueryBody constructs the status query message.
func buildQueryBody() []byte {
	body := make([]byte, 21)
	body[0] = msgTypeQuery
	body[1] = 0x81 // full status report
	return body
}

// buildSetBody encodes the writable settings into a command message.
func buildSetBody(s aircon.Settings) []byte {
	body := make([]byte, 23)
	body[0] = msgTypeSet

	if s.Power {
		body[1] |= 0x01
	}
	if s.Beep {
		body[1] |= 0x40
	}
	body[2] = byte(s.OperationalMode) << 5

	// Temperature: integer degrees in the low nibble (offset from 16),
	// half-degree flag in bit 4.
	deg := int(s.TargetTemperature)
	body[2] |= byte(deg-16) & 0x0f
	if s.TargetTemperature-float64(deg) >= 0.5 {
		body[2] |= 0x10
	}

	body[3] = byte(s.FanSpeed)
	body[7] = byte(s.SwingMode) | 0x30
	if s.EcoMode {
		body[9] |= 0x80
	}
	if s.TurboMode {
		body[10] |= 0x02
	}
	if s.Fahrenheit {
		body[10] |= 0x04
	}
	body[22] = byte(s.Rate)

	return body
}

// buildDisplayToggleBody constructs the momentary display command.
func buildDisplayToggleBody() []byte {
	body := make([]byte, 21)
	body[0] = msgTypeQuery
	body[1] = 0xa1 // display toggle action
	return body
}

// decodeStatus decodes a status reply into a snapshot.
func decodeStatus(body []byte) (aircon.Snapshot, error) {
	if len(body) < 23 || body[0] != 0xc0 {
		return aircon.Snapshot{}, fmt.Errorf("unexpected status reply (%d bytes)", len(body))
	}

	snap := aircon.Snapshot{
		Power:           body[1]&0x01 != 0,
		OperationalMode: aircon.OperationalMode(body[2] >> 5),
		FanSpeed:        aircon.FanSpeed(body[3] & 0x7f),
		SwingMode:       aircon.SwingMode(body[7] & 0x0f),
		EcoMode:         body[9]&0x80 != 0,
		TurboMode:       body[10]&0x02 != 0,
		Fahrenheit:      body[10]&0x04 != 0,
		DisplayOn:       body[14]&0x10 != 0,
		Rate:            aircon.Rate(body[22]),
	}

	snap.TargetTemperature = float64(int(body[2]&0x0f) + 16)
	if body[2]&0x10 != 0 {
		snap.TargetTemperature += 0.5
	}

	// Temperatures are (raw - 50) / 2 degrees; 0xff means not reported.
	if body[11] != 0xff {
		v := (float64(body[11]) - 50) / 2
		snap.IndoorTemperature = &v
	}
	if body[12] != 0xff {
		v := (float64(body[12]) - 50) / 2
		snap.OutdoorTemperature = &v
	}

	return snap, nil
}

// decodeDeviceID reads the unit identifier from a discovery reply header.
func decodeDeviceID(frame []byte) int64 {
	if len(frame) < 28 {
		return 0
	}
	return int64(binary.LittleEndian.Uint64(frame[20:28])) //nolint:gosec // protocol field
}
