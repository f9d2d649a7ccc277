//go:build !linux && !darwin && !windows

package defaults

import "time"

// Get returns a conservative set of defaults for platforms this module
// has no driver backend for; iface.Open will fail with
// PlatformUnsupported before these values matter much.
func Get() PlatformDefaults {
	return PlatformDefaults{
		MaximumIfMTU:       MaxMTU,
		DefaultIfMTU:       1280,
		DefaultIfNameHint:  "",
		EgressPollInterval: 5 * time.Millisecond,
	}
}
