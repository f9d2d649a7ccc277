//go:build windows

package defaults

import "time"

// Get returns the Windows platform defaults. WinTun adapter names are
// limited to 128 characters (spec.md §4.1); the name hint defaults to
// something short and obviously ours.
func Get() PlatformDefaults {
	return PlatformDefaults{
		MaximumIfMTU:       MaxMTU,
		DefaultIfMTU:       1500,
		DefaultIfNameHint:  "cdtunnel",
		EgressPollInterval: 5 * time.Millisecond,
	}
}
