//go:build !linux && !darwin && !windows

package iface

import "github.com/appium/appium-ios-tuntap/src/tunerr"

// Open reports PlatformUnsupported on any GOOS this module has no
// driver backend for.
func Open(opts OpenOptions) (Handle, error) {
	return nil, tunerr.New(tunerr.PlatformUnsupported, "no virtual interface driver for this platform")
}
