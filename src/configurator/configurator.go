// Package configurator implements the Interface Configurator: address,
// MTU and route programming for a virtual interface, plus best-effort
// traffic statistics.
package configurator

import (
	"fmt"
	"net/netip"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Params describes the interface state to converge on.
type Params struct {
	IfName  string
	Address netip.Addr
	Prefix  int // CIDR prefix length, e.g. 64
	MTU     int
}

// Route is a single IPv6 route to add or remove via the interface.
type Route struct {
	Destination netip.Prefix
}

// Stats reports interface traffic counters, when the platform tool
// surfaces them. Both counters are plain values; a counter the tool
// did not report reads as 0.
type Stats struct {
	RxBytes uint64
	TxBytes uint64
}

// CommandRunner executes an external administrative command and
// returns its combined output. Implementations shell out on
// Linux/Darwin; the Windows Configurator never calls it.
type CommandRunner interface {
	Run(name string, args ...string) (output []byte, err error)
}

// Configurator programs a virtual interface's network parameters.
type Configurator interface {
	// Configure applies the address, prefix and MTU to the interface,
	// bringing it up. Idempotent: applying identical Params twice
	// succeeds.
	Configure(p Params) error
	// AddRoute installs a route over the interface.
	AddRoute(ifName string, r Route) error
	// RemoveRoute removes a previously installed route. Removing a
	// route that isn't present is not an error.
	RemoveRoute(ifName string, r Route) error
	// Stats reads traffic counters for the interface.
	Stats(ifName string) (Stats, error)
}

// Validate checks Params against spec-level constraints shared by
// every backend, before any command is issued.
func Validate(p Params) error {
	if p.IfName == "" {
		return tunerr.New(tunerr.InvalidArgument, "interface name must not be empty")
	}
	if !p.Address.Is6() {
		return tunerr.New(tunerr.InvalidArgument, "address must be a valid IPv6 address")
	}
	if p.Prefix < 1 || p.Prefix > 128 {
		return tunerr.New(tunerr.InvalidArgument, "prefix must be in [1, 128]")
	}
	if p.MTU < 1280 || p.MTU > 65535 {
		return tunerr.New(tunerr.InvalidArgument, "mtu must be in [1280, 65535]")
	}
	return nil
}

// ParseIPv6 parses and validates an IPv6 literal, accepting canonical,
// compressed, zone-id, and IPv4-mapped (`::ffff:a.b.c.d`) forms, and
// rejecting a bare IPv4 literal, per spec.md §4.2.
func ParseIPv6(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, tunerr.Wrapf(tunerr.InvalidArgument, err, "invalid IPv6 address %q", s)
	}
	if !addr.Is6() {
		return netip.Addr{}, tunerr.New(tunerr.InvalidArgument, fmt.Sprintf("%q is not an IPv6 address", s))
	}
	return addr, nil
}
