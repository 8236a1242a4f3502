package hue

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const testSchema = `
CREATE TABLE hue_bridges (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    ip_address TEXT NOT NULL UNIQUE,
    port       INTEGER NOT NULL,
    identifier TEXT NOT NULL,
    username   TEXT NOT NULL,
    client_key TEXT NOT NULL
) STRICT;
`

// testDB creates a temp-file SQLite database with the hue_bridges schema.
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

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }

func testBridge() Bridge {
	return Bridge{
		ID:         "bridge-1",
		Name:       "Hallway Bridge",
		IPAddress:  "192.168.1.60",
		Port:       443,
		Identifier: "ecb5fafffe000001",
		Username:   "app-user",
		ClientKey:  "app-key",
	}
}

// fakeBridgeClient serves a small in-memory bridge topology and records every
// write in order.
type fakeBridgeClient struct {
	mu sync.Mutex

	rooms   []clipRoom
	devices map[string]clipDevice
	lights  map[string]clipLight
	grouped map[string]clipGroupedLight
	scenes  []clipScene

	err error // injected on every call when set

	writes []string
}

func (f *fakeBridgeClient) record(op string) {
	f.mu.Lock()
	f.writes = append(f.writes, op)
	f.mu.Unlock()
}

func (f *fakeBridgeClient) GetRooms(context.Context) ([]clipRoom, error) {
	return f.rooms, f.err
}

func (f *fakeBridgeClient) GetDevice(_ context.Context, id string) (clipDevice, error) {
	return f.devices[id], f.err
}

func (f *fakeBridgeClient) GetLight(_ context.Context, id string) (clipLight, error) {
	return f.lights[id], f.err
}

func (f *fakeBridgeClient) UpdateLight(_ context.Context, id string, _ LightPatch) error {
	f.record("light:" + id)
	return f.err
}

func (f *fakeBridgeClient) GetGroupedLight(_ context.Context, id string) (clipGroupedLight, error) {
	return f.grouped[id], f.err
}

func (f *fakeBridgeClient) UpdateGroupedLight(_ context.Context, id string, _ GroupedLightPatch) error {
	f.record("grouped:" + id)
	return f.err
}

func (f *fakeBridgeClient) GetScenes(context.Context) ([]clipScene, error) {
	return f.scenes, f.err
}

func (f *fakeBridgeClient) RecallScene(_ context.Context, id string) error {
	f.record("recall:" + id)
	return f.err
}

// testTopology builds a bridge with one room of two lights, a grouped light
// and two scenes (one belonging to another room).
func testTopology() *fakeBridgeClient {
	room := clipRoom{ID: "room-1"}
	room.Metadata.Name = "Lounge"
	room.Children = []resourceRef{
		{RID: "dev-1", RType: "device"},
		{RID: "dev-2", RType: "device"},
	}
	room.Services = []resourceRef{{RID: "grp-1", RType: "grouped_light"}}

	light1 := clipLight{ID: "light-1"}
	light1.Metadata.Name = "Ceiling"
	light1.On.On = true
	light1.Dimming = &struct {
		Brightness float64 `json:"brightness"`
	}{Brightness: 80}

	light2 := clipLight{ID: "light-2"}
	light2.Metadata.Name = "Lamp"

	grouped := clipGroupedLight{ID: "grp-1"}
	grouped.On.On = true

	sceneHere := clipScene{ID: "scene-1", Group: resourceRef{RID: "room-1", RType: "room"}}
	sceneHere.Metadata.Name = "Relax"
	sceneHere.Status = &struct {
		Active string `json:"active"`
	}{Active: "inactive"}

	sceneElsewhere := clipScene{ID: "scene-2", Group: resourceRef{RID: "room-9", RType: "room"}}
	sceneElsewhere.Metadata.Name = "Other"

	return &fakeBridgeClient{
		rooms: []clipRoom{room},
		devices: map[string]clipDevice{
			"dev-1": {ID: "dev-1", Services: []resourceRef{{RID: "light-1", RType: "light"}}},
			"dev-2": {ID: "dev-2", Services: []resourceRef{{RID: "light-2", RType: "light"}}},
		},
		lights: map[string]clipLight{
			"light-1": light1,
			"light-2": light2,
		},
		grouped: map[string]clipGroupedLight{
			"grp-1": grouped,
		},
		scenes: []clipScene{sceneHere, sceneElsewhere},
	}
}
