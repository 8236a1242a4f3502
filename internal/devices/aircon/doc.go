// Package aircon drives Midea-family air conditioning units over the local
// network.
//
// The units are empirically flaky in three distinct ways, each with its own
// bounded recovery: discovery can come back empty when a unit is actually
// present (retried, errors are not), authentication can fail transiently
// against the vendor cloud (retried with a delay), and a state refresh can
// report null or sentinel-zero temperature readings (retried, with exactly
// one extra pass for the double-zero case). The retry budgets are fixed and
// deliberately small; exhausting one is a definitive failure, not a timeout.
//
// The vendor wire protocol itself sits behind the Transport and Discoverer
// interfaces.
package aircon
