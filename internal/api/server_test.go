package api

import (
	"bytes"
	"context"
	"crypto/x509"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/joeldcross/homecontrol-core/internal/auth"
	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
	"github.com/joeldcross/homecontrol-core/internal/devices/hue"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/config"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/logging"
	"github.com/joeldcross/homecontrol-core/internal/room"
)

const testSchema = `
CREATE TABLE users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    account_type TEXT NOT NULL DEFAULT 'default',
    enabled INTEGER NOT NULL DEFAULT 0
) STRICT;

CREATE TABLE user_sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    access_token TEXT NOT NULL,
    refresh_token TEXT NOT NULL,
    long_lived INTEGER NOT NULL DEFAULT 0,
    expiry_time TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
) STRICT;

CREATE TABLE ac_devices (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    ip_address TEXT NOT NULL UNIQUE,
    port INTEGER NOT NULL,
    identifier INTEGER NOT NULL,
    key TEXT NOT NULL,
    token TEXT NOT NULL
) STRICT;

CREATE TABLE hue_bridges (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    ip_address TEXT NOT NULL UNIQUE,
    port INTEGER NOT NULL,
    identifier TEXT NOT NULL,
    username TEXT NOT NULL,
    client_key TEXT NOT NULL
) STRICT;

CREATE TABLE rooms (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    controllers TEXT NOT NULL DEFAULT '[]'
) STRICT;
`

// fakeACTransport answers every AC call with a fixed healthy reading.
type fakeACTransport struct{}

func (fakeACTransport) Authenticate(context.Context, string, string) error { return nil }

func (fakeACTransport) Refresh(context.Context) (aircon.Snapshot, error) {
	indoor, outdoor := 22.5, 14.0
	return aircon.Snapshot{
		Power:              true,
		TargetTemperature:  21,
		OperationalMode:    aircon.ModeCool,
		FanSpeed:           aircon.FanAuto,
		Rate:               aircon.RateOff,
		IndoorTemperature:  &indoor,
		OutdoorTemperature: &outdoor,
	}, nil
}

func (fakeACTransport) Apply(context.Context, aircon.Settings) error { return nil }
func (fakeACTransport) ToggleDisplay(context.Context) error          { return nil }

// fakeACDiscoverer pairs anything probed at a fixed identity.
type fakeACDiscoverer struct{}

func (fakeACDiscoverer) Discover(context.Context) ([]aircon.DiscoveryInfo, error) {
	return []aircon.DiscoveryInfo{{IPAddress: "192.168.1.50", Port: 6444, Identifier: 42}}, nil
}

func (fakeACDiscoverer) DiscoverSingle(_ context.Context, ipAddress string) (*aircon.PairingResult, error) {
	return &aircon.PairingResult{
		IPAddress:  ipAddress,
		Port:       6444,
		Identifier: 42,
		Key:        "aabbcc",
		Token:      "ddeeff",
	}, nil
}

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	db     *sql.DB
}

// newTestEnv stands up the whole API over a temp database with fake device
// transports. The returned client carries a cookie jar, so a login persists
// across calls like a browser session.
func newTestEnv(t *testing.T) *testEnv {
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

	logger := logging.New(config.LoggingConfig{Level: "error", Format: "text"}, "test")

	userRepo := auth.NewUserRepository(db)
	sessionRepo := auth.NewSessionRepository(db)
	sessionCfg := auth.SessionConfig{
		Secret:                   "test-secret",
		AccessTokenTTL:           30 * time.Minute,
		RefreshTokenTTL:          7 * 24 * time.Hour,
		LongLivedRefreshTokenTTL: 90 * 24 * time.Hour,
	}

	sessions := auth.NewSessionService(userRepo, sessionRepo, sessionCfg, logger.Logger)
	users := auth.NewUserService(userRepo, sessionRepo, logger.Logger)

	acManager := aircon.NewManager(func(aircon.Device) aircon.Transport { return fakeACTransport{} }, logger.Logger)
	acService := aircon.NewService(
		aircon.NewRepository(db),
		acManager,
		aircon.NewDiscovery(fakeACDiscoverer{}, logger.Logger),
		nil,
		logger.Logger,
	)

	hueService := hue.NewService(
		hue.NewRepository(db),
		hue.NewManager(hue.NewClientFactory(x509.NewCertPool()), logger.Logger),
		hue.NewDiscovery(false, "http://unused.invalid", logger.Logger),
		hue.NewPairerFactory(x509.NewCertPool()),
		nil,
		logger.Logger,
	)

	rooms := room.NewService(room.NewRepository(db), acService, hueService, logger.Logger)

	server, err := New(Deps{
		Logger:   logger,
		Sessions: sessions,
		Users:    users,
		Aircon:   acService,
		Hue:      hueService,
		Rooms:    rooms,
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	srv := httptest.NewServer(server.buildRouter())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}

	return &testEnv{
		srv:    srv,
		client: &http.Client{Jar: jar},
		db:     db,
	}
}

// do issues a request with an optional JSON body and returns the response.
func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

// register creates an account; the first one is the enabled admin.
func (e *testEnv) register(t *testing.T, username, password string) map[string]any {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/users", map[string]any{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /users = %d, want 201", resp.StatusCode)
	}
	return decode[map[string]any](t, resp)
}

// login authenticates and leaves the session cookies in the jar.
func (e *testEnv) login(t *testing.T, username, password string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/login", map[string]any{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /login = %d, want 200", resp.StatusCode)
	}
}

func TestLoginSetsSessionCookies(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")

	resp := env.do(t, http.MethodPost, "/login", map[string]any{
		"username": "alice",
		"password": "password123",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /login = %d, want 200", resp.StatusCode)
	}

	body := decode[map[string]any](t, resp)
	if body["session_id"] == "" || body["user_id"] == "" {
		t.Errorf("login body = %v, want session_id and user_id", body)
	}

	var access, refresh *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "access_token":
			access = c
		case "refresh_token":
			refresh = c
		}
	}
	if access == nil || refresh == nil {
		t.Fatal("login did not set both token cookies")
	}
	if !access.HttpOnly || !refresh.HttpOnly {
		t.Error("token cookies must be HttpOnly")
	}
	if !strings.HasPrefix(access.Value, "Bearer") {
		t.Errorf("access cookie = %q, want Bearer prefix", access.Value)
	}
	if access.Expires.IsZero() || !access.Expires.Equal(refresh.Expires) {
		t.Errorf("cookie expiries = %v / %v, want both at session expiry", access.Expires, refresh.Expires)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")

	resp := env.do(t, http.MethodPost, "/login", map[string]any{
		"username": "alice",
		"password": "wrong-password",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("POST /login = %d, want 401", resp.StatusCode)
	}
	body := decode[map[string]string](t, resp)
	if body["detail"] == "" {
		t.Errorf("error body = %v, want a detail message", body)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")

	// No session yet.
	if resp := env.do(t, http.MethodGet, "/verify", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /verify without session = %d, want 401", resp.StatusCode)
	}

	env.login(t, "alice", "password123")
	resp := env.do(t, http.MethodGet, "/verify", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /verify = %d, want 200", resp.StatusCode)
	}

	user := decode[map[string]any](t, resp)
	if user["username"] != "alice" {
		t.Errorf("verify user = %v, want alice", user)
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Error("verify response leaks the password hash")
	}
}

func TestRefreshRotatesSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")
	env.login(t, "alice", "password123")

	resp := env.do(t, http.MethodPost, "/refresh", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /refresh = %d, want 200", resp.StatusCode)
	}

	// The jar now holds the rotated pair; the session remains usable.
	if resp := env.do(t, http.MethodGet, "/verify", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /verify after refresh = %d, want 200", resp.StatusCode)
	}
}

func TestRefreshedTokenIsSingleUse(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")
	env.login(t, "alice", "password123")

	// Capture the original refresh cookie before the jar replaces it.
	resp := env.do(t, http.MethodPost, "/login", map[string]any{
		"username": "alice", "password": "password123",
	})
	var oldRefresh string
	for _, c := range resp.Cookies() {
		if c.Name == "refresh_token" {
			oldRefresh = c.Value
		}
	}
	if resp := env.do(t, http.MethodPost, "/refresh", nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /refresh = %d, want 200", resp.StatusCode)
	}

	// Replay the pre-rotation refresh token directly.
	req, _ := http.NewRequest(http.MethodPost, env.srv.URL+"/refresh", nil) //nolint:errcheck
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: oldRefresh})
	replay, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("replaying refresh: %v", err)
	}
	defer replay.Body.Close()
	if replay.StatusCode != http.StatusUnauthorized {
		t.Fatalf("replayed refresh = %d, want 401", replay.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")
	env.login(t, "alice", "password123")

	resp := env.do(t, http.MethodPost, "/logout", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("POST /logout = %d, want 204", resp.StatusCode)
	}

	if resp := env.do(t, http.MethodGet, "/verify", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("GET /verify after logout = %d, want 401", resp.StatusCode)
	}
}

func TestFirstUserIsAdminSecondIsDisabled(t *testing.T) {
	env := newTestEnv(t)

	first := env.register(t, "alice", "password123")
	if first["account_type"] != "admin" || first["enabled"] != true {
		t.Errorf("first user = %v, want enabled admin", first)
	}

	second := env.register(t, "bob", "password123")
	if second["account_type"] != "default" || second["enabled"] != false {
		t.Errorf("second user = %v, want disabled default", second)
	}

	// Disabled accounts cannot log in.
	resp := env.do(t, http.MethodPost, "/login", map[string]any{
		"username": "bob", "password": "password123",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("disabled login = %d, want 401", resp.StatusCode)
	}
}

func TestUserAdministration(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")
	bob := env.register(t, "bob", "password123")
	env.login(t, "alice", "password123")

	// Admin enables bob.
	resp := env.do(t, http.MethodPatch, "/users/"+bob["id"].(string), map[string]any{"enabled": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH /users/{id} = %d, want 200", resp.StatusCode)
	}

	// Bob can log in now, but is not an admin.
	bobEnv := &testEnv{srv: env.srv, client: newCookieClient(t), db: env.db}
	bobEnv.login(t, "bob", "password123")
	if resp := bobEnv.do(t, http.MethodGet, "/users", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("GET /users as default account = %d, want 403", resp.StatusCode)
	}

	// Admin listing works.
	resp = env.do(t, http.MethodGet, "/users", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /users = %d, want 200", resp.StatusCode)
	}
	if users := decode[[]map[string]any](t, resp); len(users) != 2 {
		t.Errorf("GET /users = %d accounts, want 2", len(users))
	}

	// Delete bob.
	if resp := env.do(t, http.MethodDelete, "/users/"+bob["id"].(string), nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE /users/{id} = %d, want 204", resp.StatusCode)
	}
}

func newCookieClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("creating cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func TestACDeviceLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")
	env.login(t, "alice", "password123")

	// Discover, then pair.
	resp := env.do(t, http.MethodGet, "/devices/aircon/discover", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /devices/aircon/discover = %d, want 200", resp.StatusCode)
	}
	found := decode[[]map[string]any](t, resp)
	if len(found) != 1 {
		t.Fatalf("discover = %v, want one unit", found)
	}

	resp = env.do(t, http.MethodPost, "/devices/aircon", map[string]any{
		"name":       "Living Room AC",
		"ip_address": "192.168.1.50",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /devices/aircon = %d, want 201", resp.StatusCode)
	}
	device := decode[map[string]any](t, resp)
	if _, leaked := device["key"]; leaked {
		t.Error("device response leaks pairing credentials")
	}
	id := device["id"].(string)

	// Read state.
	resp = env.do(t, http.MethodGet, "/devices/aircon/"+id+"/state", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET state = %d, want 200", resp.StatusCode)
	}
	state := decode[map[string]any](t, resp)
	if state["indoor_temperature"] != 22.5 {
		t.Errorf("indoor_temperature = %v, want 22.5", state["indoor_temperature"])
	}

	// An out-of-range patch is unprocessable.
	resp = env.do(t, http.MethodPatch, "/devices/aircon/"+id+"/state", map[string]any{
		"target_temperature": 35,
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("PATCH state (35C) = %d, want 422", resp.StatusCode)
	}

	// A valid patch succeeds.
	resp = env.do(t, http.MethodPatch, "/devices/aircon/"+id+"/state", map[string]any{
		"target_temperature": 24,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH state (24C) = %d, want 200", resp.StatusCode)
	}

	// Unknown device id.
	resp = env.do(t, http.MethodGet, "/devices/aircon/nope/state", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("GET unknown state = %d, want 404", resp.StatusCode)
	}
}

func TestRoomEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "password123")
	env.login(t, "alice", "password123")

	// Pair a unit to reference.
	resp := env.do(t, http.MethodPost, "/devices/aircon", map[string]any{
		"name":       "Living Room AC",
		"ip_address": "192.168.1.50",
	})
	device := decode[map[string]any](t, resp)

	resp = env.do(t, http.MethodPost, "/rooms", map[string]any{
		"name": "Downstairs",
		"controllers": []map[string]any{
			{"type": "ac_device", "device_id": device["id"]},
		},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /rooms = %d, want 201", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)

	resp = env.do(t, http.MethodGet, "/rooms/"+created["id"].(string)+"/state", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET room state = %d, want 200", resp.StatusCode)
	}

	// Unknown controller tags are a 400 at creation.
	resp = env.do(t, http.MethodPost, "/rooms", map[string]any{
		"name":        "Attic",
		"controllers": []map[string]any{{"type": "thermostat"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("POST /rooms bad tag = %d, want 400", resp.StatusCode)
	}
}
