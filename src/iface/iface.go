// Package iface implements the Virtual Interface Driver: a
// platform-abstracted handle to a TUN-style device. Each OS backend is
// a distinct concrete type behind the same Handle interface, selected
// at compile time by build tag — no runtime switch on GOOS.
package iface

import (
	"sync"
	"sync/atomic"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Handle is the capability set every platform backend implements.
// Implementations serialize all operations on a per-handle lock: Open
// happens once at construction, Close is mutually exclusive with
// Read/Write, and Read/Write never overlap each other on the same
// handle (spec.md §4.1 "Thread safety").
type Handle interface {
	// Read returns one packet, or an empty slice if none is currently
	// available. maxBytes bounds the read and must be in [1, 65536];
	// the tunnel's egress loop passes 16384.
	Read(maxBytes int) ([]byte, error)
	// Write transmits a single packet and returns the number of bytes
	// of the caller's payload that were accepted (never including any
	// platform framing prefix).
	Write(packet []byte) (int, error)
	// Close releases OS resources. Idempotent.
	Close() error
	// Name is the OS-assigned interface name.
	Name() string
	// HandleID is a process-unique, stable identifier that remains
	// readable after Close.
	HandleID() uint64
}

// OpenOptions configures Open.
type OpenOptions struct {
	// Name is an optional hint. Darwin accepts "utunN" to request unit
	// N+1; Linux passes it through as ifr_name; Windows uses it
	// verbatim as the adapter name (WinTun limits names to 128
	// characters), falling back to "cdtunnel" when it is empty.
	Name string
}

var handleSeq atomic.Uint64

func nextHandleID() uint64 {
	return handleSeq.Add(1)
}

// validateMaxBytes enforces spec.md §4.1's Read bound.
func validateMaxBytes(maxBytes int) error {
	if maxBytes < 1 || maxBytes > 65536 {
		return tunerr.New(tunerr.InvalidArgument, "maxBytes must be in [1, 65536]")
	}
	return nil
}

// validateWritePayload enforces spec.md §4.1's Write bound.
func validateWritePayload(packet []byte) error {
	if len(packet) > 65536 {
		return tunerr.New(tunerr.InvalidArgument, "write payload must be <= 65536 bytes")
	}
	return nil
}

// handleState is embedded by every backend to provide the shared
// open/closed bookkeeping spec.md §3's VirtualInterfaceHandle invariant
// requires: closed implies not open, and once closed a handle never
// reopens.
type handleState struct {
	mu     sync.Mutex
	id     uint64
	name   string
	closed bool
}

func newHandleState(name string) handleState {
	return handleState{id: nextHandleID(), name: name}
}

func (h *handleState) checkOpenLocked() error {
	if h.closed {
		return tunerr.New(tunerr.AlreadyClosed, "handle is closed")
	}
	return nil
}
