//go:build darwin

package configurator

import (
	"fmt"
	"net/netip"
	"testing"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

type fakeRunner struct {
	calls   [][]string
	outputs map[string][]byte
	errs    map[string]error
}

func (f *fakeRunner) Run(name string, args ...string) ([]byte, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)
	key := fmt.Sprint(call)
	return f.outputs[key], f.errs[key]
}

func TestDarwinConfigureIssuesInet6ThenMTU(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{}, errs: map[string]error{}}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	if err := cfg.Configure(p); err != nil {
		t.Fatalf("Configure returned %v, want nil", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("got %d commands, want 2: %v", len(runner.calls), runner.calls)
	}
	if runner.calls[0][0] != "ifconfig" || runner.calls[0][2] != "inet6" {
		t.Fatalf("first command = %v, want `ifconfig ... inet6 ...`", runner.calls[0])
	}
	if runner.calls[1][2] != "mtu" {
		t.Fatalf("second command = %v, want `ifconfig ... mtu ...`", runner.calls[1])
	}
}

func TestDarwinConfigureTreatsFileExistsAsSuccess(t *testing.T) {
	key := fmt.Sprint([]string{"ifconfig", "utun3", "inet6", "fd00::2", "prefixlen", "64", "up"})
	runner := &fakeRunner{
		outputs: map[string][]byte{key: []byte("ifconfig: ioctl (SIOCAIFADDR_IN6): File exists")},
		errs:    map[string]error{key: fmt.Errorf("exit status 1")},
	}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	if err := cfg.Configure(p); err != nil {
		t.Fatalf("Configure returned %v, want nil (idempotent)", err)
	}
}

func TestDarwinConfigureWrapsPermissionDenied(t *testing.T) {
	key := fmt.Sprint([]string{"ifconfig", "utun3", "inet6", "fd00::2", "prefixlen", "64", "up"})
	runner := &fakeRunner{
		outputs: map[string][]byte{key: []byte("ifconfig: ioctl (SIOCAIFADDR_IN6): Operation not permitted")},
		errs:    map[string]error{key: fmt.Errorf("exit status 1")},
	}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	err := cfg.Configure(p)
	if !tunerr.Is(err, tunerr.PermissionDenied) {
		t.Fatalf("error %v is not PermissionDenied", err)
	}
}

func TestDarwinConfigureWrapsGenuineFailure(t *testing.T) {
	key := fmt.Sprint([]string{"ifconfig", "utun3", "inet6", "fd00::2", "prefixlen", "64", "up"})
	runner := &fakeRunner{
		outputs: map[string][]byte{key: []byte("ifconfig: bad value")},
		errs:    map[string]error{key: fmt.Errorf("exit status 1")},
	}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	err := cfg.Configure(p)
	if !tunerr.Is(err, tunerr.ConfigurationFailed) {
		t.Fatalf("error %v is not ConfigurationFailed", err)
	}
}
