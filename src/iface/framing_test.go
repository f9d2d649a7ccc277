package iface

import (
	"bytes"
	"testing"
)

// TestDarwinFramingRoundTrip is the "Darwin round-trip" testable
// property from spec.md §8: read strips exactly 4 leading bytes, and
// write(payload) returns len(payload) once the prefix a real syscall
// would echo back is accounted for.
func TestDarwinFramingRoundTrip(t *testing.T) {
	payload := []byte{0x60, 0x00, 0x00, 0x00, 0x00, 0x08, 17, 64}
	framed := prependDarwinFamilyPrefix(payload)
	if len(framed) != len(payload)+darwinFamilyPrefixLen {
		t.Fatalf("framed length = %d, want %d", len(framed), len(payload)+darwinFamilyPrefixLen)
	}
	stripped := stripDarwinFamilyPrefix(framed)
	if !bytes.Equal(stripped, payload) {
		t.Fatalf("round trip mismatch: got %x, want %x", stripped, payload)
	}
}

func TestDarwinFramingShortReadIsEmpty(t *testing.T) {
	for _, n := range []int{0, 1, 2, 3, 4} {
		if got := stripDarwinFamilyPrefix(make([]byte, n)); got != nil {
			t.Fatalf("stripDarwinFamilyPrefix(%d bytes) = %v, want nil", n, got)
		}
	}
}
