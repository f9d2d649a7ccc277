//go:build linux

package defaults

import "time"

// Get returns the Linux platform defaults: /dev/net/tun supports the
// full MTU range.
func Get() PlatformDefaults {
	return PlatformDefaults{
		MaximumIfMTU:       MaxMTU,
		DefaultIfMTU:       1500,
		DefaultIfNameHint:  "",
		EgressPollInterval: 5 * time.Millisecond,
	}
}
