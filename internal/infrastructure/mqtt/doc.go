// Package mqtt publishes device state events to an MQTT broker.
//
// The publisher is optional infrastructure: when enabled, every state read or
// write performed through the device services is broadcast retained to
// homecontrol/state/{family}/{id}, letting wall panels and dashboards follow
// live state without polling the REST API. The control plane never depends on
// the broker being reachable.
package mqtt
