package aircon

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE ac_devices (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    ip_address TEXT NOT NULL,
    port       INTEGER NOT NULL,
    identifier INTEGER NOT NULL UNIQUE,
    key        TEXT NOT NULL,
    token      TEXT NOT NULL
) STRICT;
`

// testDB creates a temp-file SQLite database with the ac_devices schema.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("creating test schema: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }

// fakeTransport is a scriptable Transport for handle tests.
type fakeTransport struct {
	authErrs  []error // consumed per call; exhausted means success
	authCalls int

	refreshResults []refreshResult // consumed per call; last one repeats
	refreshCalls   int

	applyErrs  []error // consumed per call; exhausted means success
	applyCalls int
	applied    []Settings

	toggleCalls int
	toggleErr   error
}

type refreshResult struct {
	snap Snapshot
	err  error
}

func (f *fakeTransport) Authenticate(_ context.Context, _, _ string) error {
	f.authCalls++
	if len(f.authErrs) == 0 {
		return nil
	}
	err := f.authErrs[0]
	f.authErrs = f.authErrs[1:]
	return err
}

func (f *fakeTransport) Refresh(_ context.Context) (Snapshot, error) {
	f.refreshCalls++
	if len(f.refreshResults) == 0 {
		return Snapshot{}, nil
	}
	r := f.refreshResults[0]
	if len(f.refreshResults) > 1 {
		f.refreshResults = f.refreshResults[1:]
	}
	return r.snap, r.err
}

func (f *fakeTransport) Apply(_ context.Context, settings Settings) error {
	f.applyCalls++
	f.applied = append(f.applied, settings)
	if len(f.applyErrs) == 0 {
		return nil
	}
	err := f.applyErrs[0]
	f.applyErrs = f.applyErrs[1:]
	return err
}

func (f *fakeTransport) ToggleDisplay(_ context.Context) error {
	f.toggleCalls++
	return f.toggleErr
}

// healthySnapshot is a plausible reading with both temperatures present.
func healthySnapshot() Snapshot {
	return Snapshot{
		Power:              true,
		TargetTemperature:  21,
		OperationalMode:    ModeCool,
		FanSpeed:           FanAuto,
		SwingMode:          SwingOff,
		Rate:               RateOff,
		DisplayOn:          true,
		IndoorTemperature:  floatPtr(22.5),
		OutdoorTemperature: floatPtr(14),
	}
}

// fakeDiscoverer is a scriptable Discoverer for discovery tests.
type fakeDiscoverer struct {
	discoverResults []discoverResult // consumed per call; last one repeats
	discoverCalls   int

	singleResults []singleResult // consumed per call; last one repeats
	singleCalls   int
}

type discoverResult struct {
	units []DiscoveryInfo
	err   error
}

type singleResult struct {
	result *PairingResult
	err    error
}

func (f *fakeDiscoverer) Discover(_ context.Context) ([]DiscoveryInfo, error) {
	f.discoverCalls++
	if len(f.discoverResults) == 0 {
		return nil, nil
	}
	r := f.discoverResults[0]
	if len(f.discoverResults) > 1 {
		f.discoverResults = f.discoverResults[1:]
	}
	return r.units, r.err
}

func (f *fakeDiscoverer) DiscoverSingle(_ context.Context, _ string) (*PairingResult, error) {
	f.singleCalls++
	if len(f.singleResults) == 0 {
		return nil, nil
	}
	r := f.singleResults[0]
	if len(f.singleResults) > 1 {
		f.singleResults = f.singleResults[1:]
	}
	return r.result, r.err
}

func testDevice() Device {
	return Device{
		ID:         "dev-1",
		Name:       "Living Room AC",
		IPAddress:  "192.168.1.50",
		Port:       6444,
		Identifier: 151732605731024,
		Key:        "aabbcc",
		Token:      "ddeeff",
	}
}
