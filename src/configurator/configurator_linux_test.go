//go:build linux

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

func TestConfigureIssuesAddrThenLinkUp(t *testing.T) {
	runner := &fakeRunner{outputs: map[string][]byte{}, errs: map[string]error{}}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	if err := cfg.Configure(p); err != nil {
		t.Fatalf("Configure returned %v, want nil", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("got %d commands, want 2: %v", len(runner.calls), runner.calls)
	}
	if runner.calls[0][0] != "ip" || runner.calls[0][1] != "-6" || runner.calls[0][2] != "addr" {
		t.Fatalf("first command = %v, want `ip -6 addr add ...`", runner.calls[0])
	}
	if runner.calls[1][5] != "up" {
		t.Fatalf("second command = %v, want `ip link set dev ... up mtu ...`", runner.calls[1])
	}
}

func TestConfigureTreatsFileExistsAsSuccess(t *testing.T) {
	key := fmt.Sprint([]string{"ip", "-6", "addr", "add", "fd00::2/64", "dev", "utun3"})
	runner := &fakeRunner{
		outputs: map[string][]byte{key: []byte("RTNETLINK answers: File exists")},
		errs:    map[string]error{key: fmt.Errorf("exit status 2")},
	}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	if err := cfg.Configure(p); err != nil {
		t.Fatalf("Configure returned %v, want nil (idempotent)", err)
	}
}

func TestConfigureWrapsGenuineFailure(t *testing.T) {
	key := fmt.Sprint([]string{"ip", "-6", "addr", "add", "fd00::2/64", "dev", "utun3"})
	runner := &fakeRunner{
		outputs: map[string][]byte{key: []byte("Error: Invalid prefix for given prefix length.")},
		errs:    map[string]error{key: fmt.Errorf("exit status 1")},
	}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	err := cfg.Configure(p)
	if !tunerr.Is(err, tunerr.ConfigurationFailed) {
		t.Fatalf("error %v is not ConfigurationFailed", err)
	}
}

func TestConfigureWrapsPermissionDenied(t *testing.T) {
	key := fmt.Sprint([]string{"ip", "-6", "addr", "add", "fd00::2/64", "dev", "utun3"})
	runner := &fakeRunner{
		outputs: map[string][]byte{key: []byte("RTNETLINK answers: Operation not permitted")},
		errs:    map[string]error{key: fmt.Errorf("exit status 2")},
	}
	cfg := New(runner)
	p := Params{IfName: "utun3", Address: netip.MustParseAddr("fd00::2"), Prefix: 64, MTU: 1500}
	err := cfg.Configure(p)
	if !tunerr.Is(err, tunerr.PermissionDenied) {
		t.Fatalf("error %v is not PermissionDenied", err)
	}
}

func TestParseIPLinkStats(t *testing.T) {
	out := `3: utun3: <POINTOPOINT,UP,LOWER_UP> mtu 1500 qdisc fq_codel state UNKNOWN
    link/none
    RX:  bytes packets errors dropped  missed   mcast
    1024       8        0      0       0        0
    TX:  bytes packets errors dropped carrier collsns
    2048       16       0      0       0        0`
	rx, tx, ok := parseIPLinkStats(out)
	if !ok {
		t.Fatal("parseIPLinkStats returned ok=false")
	}
	if rx != 1024 || tx != 2048 {
		t.Fatalf("rx=%d tx=%d, want rx=1024 tx=2048", rx, tx)
	}
}
