//go:build windows

package iface

import (
	"errors"

	"golang.org/x/sys/windows"
	"golang.zx2c4.com/wintun"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Windows backend: a WinTun adapter and session. There is no wire
// framing to add or strip; ReceivePacket/SendPacket already deal in
// bare IPv6 datagrams.
const ringCapacity = 0x400000 // 4 MiB, wintun's documented minimum-friendly size

type windowsHandle struct {
	handleState
	adapter   *wintun.Adapter
	session   wintun.Session
	waitEvent windows.Handle
}

func openWindows(opts OpenOptions) (Handle, error) {
	name := opts.Name
	if name == "" {
		name = "cdtunnel"
	}
	adapter, err := wintun.CreateAdapter(name, "CDTunnel", nil)
	if err != nil {
		return nil, translateWindowsOpenErr(err)
	}
	session, err := adapter.StartSession(ringCapacity)
	if err != nil {
		adapter.Close()
		return nil, translateWindowsOpenErr(err)
	}
	return &windowsHandle{
		handleState: newHandleState(name),
		adapter:     adapter,
		session:     session,
		waitEvent:   session.ReadWaitEvent(),
	}, nil
}

func translateWindowsOpenErr(err error) error {
	if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
		return tunerr.Wrap(tunerr.PermissionDenied, err)
	}
	return tunerr.Wrap(tunerr.DeviceUnavailable, err)
}

// Read does not block: it returns the next received packet (cut to
// maxBytes if longer), or nil, nil when the receive ring is empty —
// the egress loop in src/tunnel treats a nil, nil result as "nothing
// ready" and retries after its poll interval.
func (h *windowsHandle) Read(maxBytes int) ([]byte, error) {
	if err := validateMaxBytes(maxBytes); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpenLocked(); err != nil {
		return nil, err
	}
	pkt, err := h.session.ReceivePacket()
	if err != nil {
		if errors.Is(err, wintun.ErrNoMoreItems) {
			return nil, nil
		}
		return nil, tunerr.Wrap(tunerr.IoError, err)
	}
	defer h.session.ReleaseReceivePacket(pkt)
	if len(pkt) > maxBytes {
		pkt = pkt[:maxBytes]
	}
	out := make([]byte, len(pkt))
	copy(out, pkt)
	return out, nil
}

func (h *windowsHandle) Write(packet []byte) (int, error) {
	if err := validateWritePayload(packet); err != nil {
		return 0, err
	}
	if len(packet) == 0 {
		return 0, nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpenLocked(); err != nil {
		return 0, err
	}
	pkt, err := h.session.AllocateSendPacket(len(packet))
	if err != nil {
		return 0, tunerr.Wrap(tunerr.IoError, err)
	}
	copy(pkt, packet)
	h.session.SendPacket(pkt)
	return len(packet), nil
}

func (h *windowsHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	h.session.End()
	return h.adapter.Close()
}

func (h *windowsHandle) Name() string     { return h.name }
func (h *windowsHandle) HandleID() uint64 { return h.id }

// WaitEvent exposes the session's receive event. src/tunnel does not
// wait on it; its egress loop polls Read on a ticker on every platform.
func (h *windowsHandle) WaitEvent() windows.Handle { return h.waitEvent }

// Open creates a new WinTun adapter and session on Windows.
func Open(opts OpenOptions) (Handle, error) {
	return openWindows(opts)
}
