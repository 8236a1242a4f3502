// Package devices holds the error taxonomy and shared contracts for the
// physical device families (air conditioning units, Hue bridges).
//
// Each family lives in its own subpackage with the same shape: a persisted
// device record, a per-process manager of live authenticated handles rebuilt
// from storage at startup, and a service tying discovery, pairing,
// persistence and the manager together.
package devices
