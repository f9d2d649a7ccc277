//go:build linux

package configurator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// linuxConfigurator drives `ip` for address/link/route programming and
// `ip -s link show` for stats, mirroring the exec.Command argv shape
// shown by lightweight-tunnel's Linux path.
type linuxConfigurator struct {
	runner CommandRunner
}

// New returns the Linux Configurator.
func New(runner CommandRunner) Configurator {
	return &linuxConfigurator{runner: runner}
}

func (c *linuxConfigurator) Configure(p Params) error {
	if err := Validate(p); err != nil {
		return err
	}
	cidr := fmt.Sprintf("%s/%d", p.Address.String(), p.Prefix)
	if out, err := c.runner.Run("ip", "-6", "addr", "add", cidr, "dev", p.IfName); err != nil {
		if !strings.Contains(string(out), "File exists") {
			return mapLinuxErr(err, out)
		}
	}
	if out, err := c.runner.Run("ip", "link", "set", "dev", p.IfName, "up", "mtu", strconv.Itoa(p.MTU)); err != nil {
		return mapLinuxErr(err, out)
	}
	return nil
}

func (c *linuxConfigurator) AddRoute(ifName string, r Route) error {
	out, err := c.runner.Run("ip", "-6", "route", "add", r.Destination.String(), "dev", ifName)
	if err != nil && !strings.Contains(string(out), "File exists") {
		return mapLinuxErr(err, out)
	}
	return nil
}

func (c *linuxConfigurator) RemoveRoute(ifName string, r Route) error {
	out, err := c.runner.Run("ip", "-6", "route", "del", r.Destination.String(), "dev", ifName)
	if err != nil && !strings.Contains(string(out), "No such process") {
		return mapLinuxErr(err, out)
	}
	return nil
}

func (c *linuxConfigurator) Stats(ifName string) (Stats, error) {
	out, err := c.runner.Run("ip", "-s", "link", "show", ifName)
	if err != nil {
		return Stats{}, mapLinuxErr(err, out)
	}
	rx, tx, ok := parseIPLinkStats(string(out))
	if !ok {
		return Stats{}, tunerr.New(tunerr.StatsUnavailable, "could not parse `ip -s link show` output")
	}
	return Stats{RxBytes: rx, TxBytes: tx}, nil
}

// parseIPLinkStats scans the RX/TX byte counters out of `ip -s link
// show` output, which reports a "RX: bytes ..." header line followed
// by a numeric line, and likewise for TX.
func parseIPLinkStats(out string) (rx, tx uint64, ok bool) {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "RX:") && i+1 < len(lines) {
			if v, found := firstUint64(lines[i+1]); found {
				rx = v
			}
		}
		if strings.HasPrefix(trimmed, "TX:") && i+1 < len(lines) {
			if v, found := firstUint64(lines[i+1]); found {
				tx = v
			}
		}
	}
	return rx, tx, rx != 0 || tx != 0
}

func firstUint64(line string) (uint64, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func mapLinuxErr(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = err.Error()
	}
	if strings.Contains(msg, "not found") || strings.Contains(err.Error(), "executable file not found") {
		return tunerr.Wrapf(tunerr.ToolingMissing, err, "%s", msg)
	}
	if strings.Contains(msg, "Operation not permitted") || strings.Contains(msg, "Permission denied") ||
		strings.Contains(err.Error(), "permission denied") {
		return tunerr.Wrapf(tunerr.PermissionDenied, err, "%s", msg)
	}
	return tunerr.Wrapf(tunerr.ConfigurationFailed, err, "%s", msg)
}
