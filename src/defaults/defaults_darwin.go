//go:build darwin

package defaults

import "time"

// Get returns the Darwin platform defaults. utun devices are happiest
// with conservative read sizes, so the egress poll stays short even
// though the kernel itself has no hard MTU ceiling below MaxMTU.
func Get() PlatformDefaults {
	return PlatformDefaults{
		MaximumIfMTU:       MaxMTU,
		DefaultIfMTU:       1500,
		DefaultIfNameHint:  "utun",
		EgressPollInterval: 5 * time.Millisecond,
	}
}
