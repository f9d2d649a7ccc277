//go:build !linux && !darwin && !windows

package configurator

import "github.com/appium/appium-ios-tuntap/src/tunerr"

type unsupportedConfigurator struct{}

// New returns a Configurator that always reports PlatformUnsupported.
func New(_ interface{}) Configurator {
	return unsupportedConfigurator{}
}

func (unsupportedConfigurator) Configure(Params) error {
	return tunerr.New(tunerr.PlatformUnsupported, "no interface configurator for this platform")
}

func (unsupportedConfigurator) AddRoute(string, Route) error {
	return tunerr.New(tunerr.PlatformUnsupported, "no interface configurator for this platform")
}

func (unsupportedConfigurator) RemoveRoute(string, Route) error {
	return tunerr.New(tunerr.PlatformUnsupported, "no interface configurator for this platform")
}

func (unsupportedConfigurator) Stats(string) (Stats, error) {
	return Stats{}, tunerr.New(tunerr.PlatformUnsupported, "no interface configurator for this platform")
}
