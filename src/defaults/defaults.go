// Package defaults holds the per-platform constants used when a caller
// doesn't supply an explicit value: MTU ceilings, the interface name
// hint passed to the driver's Open, and the egress poll interval.
//
// Populated per-platform in defaults_{linux,darwin,windows,other}.go,
// the same split the teacher uses for its own platform defaults.
package defaults

import "time"

// PlatformDefaults captures everything that varies by host OS but not
// by tunnel instance.
type PlatformDefaults struct {
	// MaximumIfMTU is the largest MTU this platform's driver can set.
	MaximumIfMTU int
	// DefaultIfMTU is used when a caller asks for MTU 0.
	DefaultIfMTU int
	// DefaultIfNameHint is a name a host can pass to the driver's Open
	// when it has no name of its own. Nothing in this module passes it
	// automatically.
	DefaultIfNameHint string
	// EgressPollInterval is how often the forwarder polls the interface
	// for outbound packets (spec: 5ms on all platforms, kept
	// per-platform here in case a future backend wants readiness I/O
	// instead of polling, per spec.md §9).
	EgressPollInterval time.Duration
}

// MinMTU and MaxMTU bound the MTU invariant that is the same on every
// platform (spec.md §3 TunnelParameters invariant).
const (
	MinMTU = 1280
	MaxMTU = 65535
)

// Clamp returns mtu bounded to [MinMTU, this platform's MaximumIfMTU].
func (d PlatformDefaults) Clamp(mtu int) int {
	if mtu <= 0 {
		return d.DefaultIfMTU
	}
	if mtu > d.MaximumIfMTU {
		return d.MaximumIfMTU
	}
	if mtu < MinMTU {
		return MinMTU
	}
	return mtu
}
