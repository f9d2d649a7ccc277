//go:build darwin

package configurator

import (
	"strconv"
	"strings"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// darwinConfigurator drives `ifconfig`/`route`/`netstat`, mirroring
// lightweight-tunnel's macOS path.
type darwinConfigurator struct {
	runner CommandRunner
}

// New returns the Darwin Configurator.
func New(runner CommandRunner) Configurator {
	return &darwinConfigurator{runner: runner}
}

func (c *darwinConfigurator) Configure(p Params) error {
	if err := Validate(p); err != nil {
		return err
	}
	if out, err := c.runner.Run("ifconfig", p.IfName, "inet6", p.Address.String(), "prefixlen", strconv.Itoa(p.Prefix), "up"); err != nil {
		if !strings.Contains(string(out), "File exists") {
			return mapDarwinErr(err, out)
		}
	}
	if out, err := c.runner.Run("ifconfig", p.IfName, "mtu", strconv.Itoa(p.MTU)); err != nil {
		return mapDarwinErr(err, out)
	}
	return nil
}

func (c *darwinConfigurator) AddRoute(ifName string, r Route) error {
	out, err := c.runner.Run("route", "-n", "add", "-inet6", r.Destination.String(), "-interface", ifName)
	if err != nil && !strings.Contains(string(out), "File exists") {
		return mapDarwinErr(err, out)
	}
	return nil
}

func (c *darwinConfigurator) RemoveRoute(ifName string, r Route) error {
	out, err := c.runner.Run("route", "-n", "delete", "-inet6", r.Destination.String(), "-interface", ifName)
	if err != nil && !strings.Contains(string(out), "not in table") {
		return mapDarwinErr(err, out)
	}
	return nil
}

func (c *darwinConfigurator) Stats(ifName string) (Stats, error) {
	out, err := c.runner.Run("netstat", "-I", ifName, "-b")
	if err != nil {
		return Stats{}, mapDarwinErr(err, out)
	}
	rx, tx, ok := parseNetstatStats(string(out))
	if !ok {
		return Stats{}, tunerr.New(tunerr.StatsUnavailable, "could not parse `netstat -I -b` output")
	}
	return Stats{RxBytes: rx, TxBytes: tx}, nil
}

// parseNetstatStats reads the "Ibytes"/"Obytes" columns from
// `netstat -I <if> -b`'s header/data line pair.
func parseNetstatStats(out string) (rx, tx uint64, ok bool) {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) < 2 {
		return 0, 0, false
	}
	headers := strings.Fields(lines[0])
	ibytesIdx, obytesIdx := -1, -1
	for i, h := range headers {
		switch h {
		case "Ibytes":
			ibytesIdx = i
		case "Obytes":
			obytesIdx = i
		}
	}
	if ibytesIdx == -1 || obytesIdx == -1 {
		return 0, 0, false
	}
	fields := strings.Fields(lines[len(lines)-1])
	if ibytesIdx >= len(fields) || obytesIdx >= len(fields) {
		return 0, 0, false
	}
	rx, errRx := strconv.ParseUint(fields[ibytesIdx], 10, 64)
	tx, errTx := strconv.ParseUint(fields[obytesIdx], 10, 64)
	if errRx != nil || errTx != nil {
		return 0, 0, false
	}
	return rx, tx, true
}

func mapDarwinErr(err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		msg = err.Error()
	}
	if strings.Contains(err.Error(), "executable file not found") {
		return tunerr.Wrapf(tunerr.ToolingMissing, err, "%s", msg)
	}
	if strings.Contains(msg, "Operation not permitted") || strings.Contains(msg, "Permission denied") ||
		strings.Contains(err.Error(), "permission denied") {
		return tunerr.Wrapf(tunerr.PermissionDenied, err, "%s", msg)
	}
	return tunerr.Wrapf(tunerr.ConfigurationFailed, err, "%s", msg)
}
