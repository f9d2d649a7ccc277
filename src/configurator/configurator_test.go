package configurator

import (
	"net/netip"
	"testing"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

func validParams() Params {
	return Params{
		IfName:  "utun3",
		Address: netip.MustParseAddr("fd00::2"),
		Prefix:  64,
		MTU:     1500,
	}
}

func TestValidateAcceptsWellFormedParams(t *testing.T) {
	if err := Validate(validParams()); err != nil {
		t.Fatalf("Validate returned %v, want nil", err)
	}
}

func TestValidateRejectsEmptyName(t *testing.T) {
	p := validParams()
	p.IfName = ""
	assertInvalidArgument(t, Validate(p))
}

func TestValidateRejectsIPv4Address(t *testing.T) {
	p := validParams()
	p.Address = netip.MustParseAddr("10.0.0.1")
	assertInvalidArgument(t, Validate(p))
}

func TestValidateRejectsOutOfRangePrefix(t *testing.T) {
	for _, prefix := range []int{0, 129, -1} {
		p := validParams()
		p.Prefix = prefix
		assertInvalidArgument(t, Validate(p))
	}
}

func TestValidateRejectsOutOfRangeMTU(t *testing.T) {
	for _, mtu := range []int{0, 1279, 65536} {
		p := validParams()
		p.MTU = mtu
		assertInvalidArgument(t, Validate(p))
	}
}

func TestParseIPv6AcceptsIPv4Mapped(t *testing.T) {
	addr, err := ParseIPv6("::ffff:192.0.2.1")
	if err != nil {
		t.Fatalf("ParseIPv6 returned %v, want nil", err)
	}
	if !addr.Is6() {
		t.Fatalf("addr = %v, want an IPv6 address", addr)
	}
}

func TestParseIPv6RejectsBareIPv4(t *testing.T) {
	_, err := ParseIPv6("192.0.2.1")
	assertInvalidArgument(t, err)
}

func TestParseIPv6AcceptsCompressedForm(t *testing.T) {
	addr, err := ParseIPv6("fd00::2")
	if err != nil {
		t.Fatalf("ParseIPv6 returned %v, want nil", err)
	}
	if addr.String() != "fd00::2" {
		t.Fatalf("addr = %v, want fd00::2", addr)
	}
}

func assertInvalidArgument(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !tunerr.Is(err, tunerr.InvalidArgument) {
		t.Fatalf("error %v is not InvalidArgument", err)
	}
}
