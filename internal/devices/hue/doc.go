// Package hue drives Philips Hue bridges over their local HTTPS API (CLIP v2).
//
// Bridges serve a self-signed certificate rooted in Signify's bridge CA, so
// the client pins TLS by dialling with the bridge serial as the SNI/verify
// name against the bundled root bundle. Pairing exchanges the physical
// button-press handshake for a long-lived application key, persisted alongside
// the bridge record and reused for every later session.
package hue
