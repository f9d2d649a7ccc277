package iface

import "encoding/binary"

// darwinFamilyPrefixLen is the 4-byte network-order address-family
// header utun prepends to (and requires on) every packet, per
// spec.md §4.1/§6. Kept free of a build tag so the framing logic is
// unit-testable on any host (Testable property: Darwin round-trip),
// even though only the darwin backend in iface_darwin.go calls it.
const darwinFamilyPrefixLen = 4

// afINET6 mirrors syscall.AF_INET6's value on Darwin (30).
const afINET6 = 30

// stripDarwinFamilyPrefix removes the leading 4-byte AF header a utun
// read returns. A read of 4 bytes or fewer carries no payload and is
// treated as empty, per spec.md §4.1.
func stripDarwinFamilyPrefix(raw []byte) []byte {
	if len(raw) <= darwinFamilyPrefixLen {
		return nil
	}
	return raw[darwinFamilyPrefixLen:]
}

// prependDarwinFamilyPrefix builds the buffer actually written to the
// utun fd: a 4-byte big-endian AF_INET6 header followed by packet.
func prependDarwinFamilyPrefix(packet []byte) []byte {
	out := make([]byte, darwinFamilyPrefixLen+len(packet))
	binary.BigEndian.PutUint32(out[:darwinFamilyPrefixLen], uint32(afINET6))
	copy(out[darwinFamilyPrefixLen:], packet)
	return out
}
