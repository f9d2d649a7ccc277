//go:build windows

package configurator

import (
	"net/netip"

	"golang.org/x/sys/windows"
	"golang.zx2c4.com/wireguard/windows/tunnel/winipcfg"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// LUIDLookup resolves an interface name to its Windows LUID. The
// Windows Configurator has no subprocess surface; it calls winipcfg
// directly against the adapter's LUID, the same way the teacher's
// tun_windows.go does against its NativeTun.
type LUIDLookup func(ifName string) (winipcfg.LUID, error)

type windowsConfigurator struct {
	lookup LUIDLookup
}

// New returns the Windows Configurator, driven by winipcfg instead of
// a shelled-out command — there is no equivalent subprocess tool on
// this platform, so CommandRunner goes unused here.
func New(lookup LUIDLookup) Configurator {
	return &windowsConfigurator{lookup: lookup}
}

func (c *windowsConfigurator) Configure(p Params) error {
	if err := Validate(p); err != nil {
		return err
	}
	luid, err := c.lookup(p.IfName)
	if err != nil {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	prefix := netip.PrefixFrom(p.Address, p.Prefix)
	if err := luid.SetIPAddressesForFamily(windows.AF_INET6, []netip.Prefix{prefix}); err != nil {
		if err != windows.ERROR_OBJECT_ALREADY_EXISTS {
			return tunerr.Wrap(tunerr.ConfigurationFailed, err)
		}
	}

	ipfamily, err := luid.IPInterface(windows.AF_INET6)
	if err != nil {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	ipfamily.NLMTU = uint32(p.MTU)
	ipfamily.UseAutomaticMetric = false
	ipfamily.Metric = 0
	ipfamily.DadTransmits = 0
	ipfamily.RouterDiscoveryBehavior = winipcfg.RouterDiscoveryDisabled
	if err := ipfamily.Set(); err != nil {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	return nil
}

func (c *windowsConfigurator) AddRoute(ifName string, r Route) error {
	luid, err := c.lookup(ifName)
	if err != nil {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	if err := luid.AddRoute(r.Destination, netip.IPv6Unspecified(), 0); err != nil && err != windows.ERROR_OBJECT_ALREADY_EXISTS {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	return nil
}

func (c *windowsConfigurator) RemoveRoute(ifName string, r Route) error {
	luid, err := c.lookup(ifName)
	if err != nil {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	if err := luid.DeleteRoute(r.Destination, netip.IPv6Unspecified()); err != nil && err != windows.ERROR_NOT_FOUND {
		return tunerr.Wrap(tunerr.ConfigurationFailed, err)
	}
	return nil
}

func (c *windowsConfigurator) Stats(ifName string) (Stats, error) {
	luid, err := c.lookup(ifName)
	if err != nil {
		return Stats{}, tunerr.Wrap(tunerr.StatsUnavailable, err)
	}
	row, err := luid.Interface()
	if err != nil {
		return Stats{}, tunerr.Wrap(tunerr.StatsUnavailable, err)
	}
	return Stats{RxBytes: row.InOctets, TxBytes: row.OutOctets}, nil
}
