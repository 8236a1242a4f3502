package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for homecontrol.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Auth     AuthConfig     `yaml:"auth"`
	Midea    MideaConfig    `yaml:"midea"`
	Hue      HueConfig      `yaml:"hue"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// AuthConfig contains session token settings.
//
// Secret signs every access and refresh token; there is no key rotation, so
// changing it invalidates all live sessions.
type AuthConfig struct {
	Secret string `yaml:"secret"`

	// AccessTokenTTL is the access token lifetime in seconds.
	AccessTokenTTL int `yaml:"access_token_ttl"`

	// RefreshTokenTTL is the standard refresh token lifetime in seconds.
	RefreshTokenTTL int `yaml:"refresh_token_ttl"`

	// LongLivedRefreshTokenTTL is the extended refresh token lifetime in
	// seconds, granted when a non-admin login requests "remember me".
	LongLivedRefreshTokenTTL int `yaml:"long_lived_refresh_token_ttl"`
}

// MideaConfig contains vendor cloud credentials used during AC pairing.
type MideaConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// HueConfig contains Hue bridge discovery settings.
type HueConfig struct {
	// UseMDNSDiscovery selects mDNS service browsing over the public
	// discovery relay. mDNS may not work in some configurations such as
	// Docker via WSL.
	UseMDNSDiscovery bool `yaml:"use_mdns_discovery"`

	// CertFile is the path to the Hue bridge root CA bundle used to verify
	// the bridge's self-signed TLS certificate.
	CertFile string `yaml:"cert_file"`

	// DiscoveryURL is the public discovery relay endpoint.
	DiscoveryURL string `yaml:"discovery_url"`
}

// MQTTConfig contains MQTT state-event publisher settings.
// The publisher is optional; when disabled, no broker connection is made.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMECONTROL_SECTION_KEY
// For example: HOMECONTROL_DATABASE_PATH, HOMECONTROL_AUTH_SECRET
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default TTLs: 30-minute access tokens, 7-day refresh tokens, 90-day
// long-lived refresh tokens.
const (
	defaultAccessTokenTTL           = 30 * 60
	defaultRefreshTokenTTL          = 7 * 24 * 60 * 60
	defaultLongLivedRefreshTokenTTL = 90 * 24 * 60 * 60
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        "./data/homecontrol.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Auth: AuthConfig{
			AccessTokenTTL:           defaultAccessTokenTTL,
			RefreshTokenTTL:          defaultRefreshTokenTTL,
			LongLivedRefreshTokenTTL: defaultLongLivedRefreshTokenTTL,
		},
		Hue: HueConfig{
			UseMDNSDiscovery: true,
			CertFile:         "hue_cert.pem",
			DiscoveryURL:     "https://discovery.meethue.com/",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "homecontrol-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMECONTROL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("HOMECONTROL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// API
	if v := os.Getenv("HOMECONTROL_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMECONTROL_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Auth secret (IMPORTANT: always set in production)
	if v := os.Getenv("HOMECONTROL_AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}

	// Vendor credentials
	if v := os.Getenv("HOMECONTROL_MIDEA_USERNAME"); v != "" {
		cfg.Midea.Username = v
	}
	if v := os.Getenv("HOMECONTROL_MIDEA_PASSWORD"); v != "" {
		cfg.Midea.Password = v
	}

	// MQTT
	if v := os.Getenv("HOMECONTROL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("HOMECONTROL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("HOMECONTROL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Database.BusyTimeout < 0 {
		errs = append(errs, "database.busy_timeout must not be negative")
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Auth.Secret == "" {
		errs = append(errs, "auth.secret is required (set HOMECONTROL_AUTH_SECRET)")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		errs = append(errs, "auth.access_token_ttl must be positive")
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		errs = append(errs, "auth.refresh_token_ttl must be positive")
	}
	if c.Auth.LongLivedRefreshTokenTTL < c.Auth.RefreshTokenTTL {
		errs = append(errs, "auth.long_lived_refresh_token_ttl must not be shorter than auth.refresh_token_ttl")
	}

	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
			errs = append(errs, "mqtt.qos must be 0, 1, or 2")
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error", "":
	default:
		errs = append(errs, fmt.Sprintf("logging.level %q is not recognised", c.Logging.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
