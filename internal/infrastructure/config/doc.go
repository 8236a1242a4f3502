// Package config loads and validates homecontrol configuration.
//
// Configuration comes from a YAML file with environment variable overrides
// (HOMECONTROL_* prefix). The loaded Config struct is passed explicitly into
// each component constructor; there is no package-level configuration state.
package config
