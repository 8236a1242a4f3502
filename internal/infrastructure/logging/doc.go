// Package logging provides the structured logger used across homecontrol.
//
// It wraps log/slog: JSON output for deployments, text for development, with
// level filtering driven by the logging section of config.yaml. Every record
// carries the service name and version.
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("starting service", "port", 8080)
//
// Component loggers come from With:
//
//	mqttLog := log.With("component", "mqtt")
//
// Never log secrets: tokens, passwords and device keys stay out of records.
package logging
