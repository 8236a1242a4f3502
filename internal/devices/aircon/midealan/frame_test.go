package midealan

import (
	"bytes"
	"testing"

	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
)

func TestFrameRoundTrip(t *testing.T) {
	body := buildQueryBody()

	frame, err := buildFrame(151732605731024, body)
	if err != nil {
		t.Fatalf("buildFrame() error = %v", err)
	}

	got, err := parseFrame(frame)
	if err != nil {
		t.Fatalf("parseFrame() error = %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("parseFrame() = %x, want %x", got, body)
	}
}

func TestParseFrameRejectsTampering(t *testing.T) {
	frame, err := buildFrame(1, buildQueryBody())
	if err != nil {
		t.Fatalf("buildFrame() error = %v", err)
	}

	frame[45] ^= 0xff
	if _, err := parseFrame(frame); err == nil {
		t.Fatal("parseFrame() accepted a tampered frame")
	}
}

func TestParseFrameRejectsBadMagic(t *testing.T) {
	frame, err := buildFrame(1, buildQueryBody())
	if err != nil {
		t.Fatalf("buildFrame() error = %v", err)
	}

	frame[0] = 0x00
	if _, err := parseFrame(frame); err == nil {
		t.Fatal("parseFrame() accepted a bad magic")
	}
}

func TestBuildSetBodyEncodesSettings(t *testing.T) {
	body := buildSetBody(aircon.Settings{
		Power:             true,
		TargetTemperature: 21.5,
		OperationalMode:   aircon.ModeHeat,
		FanSpeed:          aircon.FanMedium,
		SwingMode:         aircon.SwingBoth,
		EcoMode:           true,
		Rate:              aircon.RateGear75,
		Beep:              true,
	})

	if body[0] != msgTypeSet {
		t.Errorf("message type = %#x, want %#x", body[0], msgTypeSet)
	}
	if body[1]&0x01 == 0 {
		t.Error("power bit not set")
	}
	if body[1]&0x40 == 0 {
		t.Error("beep bit not set")
	}
	if got := body[2] >> 5; got != byte(aircon.ModeHeat) {
		t.Errorf("mode = %d, want %d", got, aircon.ModeHeat)
	}
	if got := body[2] & 0x0f; got != 21-16 {
		t.Errorf("temperature nibble = %d, want %d", got, 21-16)
	}
	if body[2]&0x10 == 0 {
		t.Error("half-degree bit not set for 21.5")
	}
	if body[3] != byte(aircon.FanMedium) {
		t.Errorf("fan speed = %d, want %d", body[3], aircon.FanMedium)
	}
	if body[7]&0x0f != byte(aircon.SwingBoth) {
		t.Errorf("swing = %#x, want %#x", body[7]&0x0f, aircon.SwingBoth)
	}
	if body[9]&0x80 == 0 {
		t.Error("eco bit not set")
	}
	if body[22] != byte(aircon.RateGear75) {
		t.Errorf("rate = %d, want %d", body[22], aircon.RateGear75)
	}
}

func TestDecodeStatusRoundTrip(t *testing.T) {
	body := make([]byte, 23)
	body[0] = 0xc0
	body[1] = 0x01                          // power on
	body[2] = byte(2)<<5 | 0x10 | (23 - 16) // cool, 23.5 degrees
	body[3] = byte(aircon.FanAuto)
	body[7] = byte(aircon.SwingVertical)
	body[11] = 95   // (95-50)/2 = 22.5 indoor
	body[12] = 0xff // outdoor not reported
	body[14] = 0x10 // display on
	body[22] = byte(aircon.RateOff)

	snap, err := decodeStatus(body)
	if err != nil {
		t.Fatalf("decodeStatus() error = %v", err)
	}

	if !snap.Power || snap.OperationalMode != aircon.ModeCool {
		t.Errorf("power/mode = %v/%v, want on/cool", snap.Power, snap.OperationalMode)
	}
	if snap.TargetTemperature != 23.5 {
		t.Errorf("target temperature = %v, want 23.5", snap.TargetTemperature)
	}
	if snap.IndoorTemperature == nil || *snap.IndoorTemperature != 22.5 {
		t.Errorf("indoor temperature = %v, want 22.5", snap.IndoorTemperature)
	}
	if snap.OutdoorTemperature != nil {
		t.Errorf("outdoor temperature = %v, want nil for 0xff", *snap.OutdoorTemperature)
	}
	if !snap.DisplayOn {
		t.Error("display bit not decoded")
	}
}

func TestDecodeStatusRejectsWrongReply(t *testing.T) {
	if _, err := decodeStatus([]byte{0x41}); err == nil {
		t.Fatal("decodeStatus() accepted a non-status reply")
	}
}
