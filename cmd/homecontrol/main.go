// homecontrol is the home automation control plane: session-token
// authentication in front of locally controlled AC units and Philips Hue
// bridges, composed into rooms behind a small REST API.
package main

import (
	"context"
	"crypto/x509"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joeldcross/homecontrol-core/migrations"

	"github.com/joeldcross/homecontrol-core/internal/api"
	"github.com/joeldcross/homecontrol-core/internal/auth"
	"github.com/joeldcross/homecontrol-core/internal/devices"
	"github.com/joeldcross/homecontrol-core/internal/devices/aircon"
	"github.com/joeldcross/homecontrol-core/internal/devices/aircon/midealan"
	"github.com/joeldcross/homecontrol-core/internal/devices/hue"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/config"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/database"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/logging"
	"github.com/joeldcross/homecontrol-core/internal/infrastructure/mqtt"
	"github.com/joeldcross/homecontrol-core/internal/room"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// deviceLoadTimeout bounds the initial device registration pass. Unreachable
// units are skipped, not fatal, so this only caps the handshake attempts.
const deviceLoadTimeout = 60 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting homecontrol",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Open database and bring the schema up to date
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	// Auth services
	userRepo := auth.NewUserRepository(db.DB)
	sessionRepo := auth.NewSessionRepository(db.DB)
	sessions := auth.NewSessionService(userRepo, sessionRepo, auth.SessionConfig{
		Secret:                   cfg.Auth.Secret,
		AccessTokenTTL:           time.Duration(cfg.Auth.AccessTokenTTL) * time.Second,
		RefreshTokenTTL:          time.Duration(cfg.Auth.RefreshTokenTTL) * time.Second,
		LongLivedRefreshTokenTTL: time.Duration(cfg.Auth.LongLivedRefreshTokenTTL) * time.Second,
	}, log.Logger)
	users := auth.NewUserService(userRepo, sessionRepo, log.Logger)

	if swept, sweepErr := sessions.SweepExpired(ctx); sweepErr != nil {
		log.Warn("sweeping expired sessions failed", "error", sweepErr)
	} else if swept > 0 {
		log.Info("expired sessions swept", "count", swept)
	}

	// MQTT state publisher (optional)
	var publisher devices.StatePublisher
	if cfg.MQTT.Enabled {
		mqttClient, mqttErr := mqtt.Connect(cfg.MQTT)
		if mqttErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", mqttErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		)
		publisher = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// AC units
	acService := aircon.NewService(
		aircon.NewRepository(db.DB),
		aircon.NewManager(midealan.NewFactory(), log.Logger),
		aircon.NewDiscovery(midealan.NewDiscoverer(midealan.NewCloudClient(cfg.Midea.Username, cfg.Midea.Password)), log.Logger),
		publisher,
		log.Logger,
	)

	// Hue bridges
	rootCAs, err := loadHueRootCAs(cfg.Hue.CertFile)
	if err != nil {
		return fmt.Errorf("loading hue certificates: %w", err)
	}
	hueService := hue.NewService(
		hue.NewRepository(db.DB),
		hue.NewManager(hue.NewClientFactory(rootCAs), log.Logger),
		hue.NewDiscovery(cfg.Hue.UseMDNSDiscovery, cfg.Hue.DiscoveryURL, log.Logger),
		hue.NewPairerFactory(rootCAs),
		publisher,
		log.Logger,
	)

	// Register every persisted device. Units that fail their handshake are
	// skipped and logged; they can be re-paired through the API.
	loadCtx, cancelLoad := context.WithTimeout(ctx, deviceLoadTimeout)
	if loadErr := acService.LoadAll(loadCtx); loadErr != nil {
		cancelLoad()
		return fmt.Errorf("loading ac devices: %w", loadErr)
	}
	if loadErr := hueService.LoadAll(loadCtx); loadErr != nil {
		cancelLoad()
		return fmt.Errorf("loading hue bridges: %w", loadErr)
	}
	cancelLoad()

	rooms := room.NewService(room.NewRepository(db.DB), acService, hueService, log.Logger)

	// HTTP API
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Sessions: sessions,
		Users:    users,
		Aircon:   acService,
		Hue:      hueService,
		Rooms:    rooms,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOMECONTROL_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOMECONTROL_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadHueRootCAs reads the Hue bridge signing certificate bundle. Bridges
// present self-signed certificates chained to Signify's root CA, so the
// system pool cannot verify them.
func loadHueRootCAs(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading certificate bundle: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return pool, nil
}
