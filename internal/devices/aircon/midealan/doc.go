// Package midealan speaks the Midea LAN protocol (V3) to air conditioning
// units: UDP broadcast discovery on port 6445 and a framed TCP session for
// authentication, status queries and commands.
//
// Only the subset of the protocol homecontrol needs is implemented. Frame
// layout and the status/command message bodies follow the publicly documented
// behaviour of the vendor's mobile app; the package makes no attempt to cover
// other Midea appliance types.
package midealan
