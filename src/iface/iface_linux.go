//go:build linux

package iface

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Linux backend: opens /dev/net/tun and issues TUNSETIFF with
// IFF_TUN|IFF_NO_PI so the kernel hands back raw IPv6 packets with no
// leading protocol-info header (unlike Darwin, no framing prefix).
const (
	tunDevicePath = "/dev/net/tun"
	ifNameSize    = 16
	iffTUN        = 0x0001
	iffNoPI       = 0x1000
)

// ifReq mirrors struct ifreq's layout for the TUNSETIFF ioctl: a
// 16-byte name field followed by a union whose first two bytes we use
// as the flags field.
type ifReq struct {
	name  [ifNameSize]byte
	flags uint16
	_     [22]byte
}

type linuxHandle struct {
	handleState
	fd int
}

func openLinux(opts OpenOptions) (Handle, error) {
	fd, err := unix.Open(tunDevicePath, unix.O_RDWR, 0)
	if err != nil {
		return nil, translateLinuxOpenErr(err)
	}
	ok := false
	defer func() {
		if !ok {
			unix.Close(fd)
		}
	}()

	var req ifReq
	copy(req.name[:], opts.Name)
	req.flags = iffTUN | iffNoPI

	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(unix.TUNSETIFF),
		uintptr(unsafe.Pointer(&req))); errno != 0 {
		return nil, translateLinuxOpenErr(errno)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, tunerr.Wrap(tunerr.DeviceUnavailable, err)
	}

	name := cString(req.name[:])
	ok = true
	return &linuxHandle{handleState: newHandleState(name), fd: fd}, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func translateLinuxOpenErr(err error) error {
	switch err {
	case unix.EACCES, unix.EPERM:
		return tunerr.Wrap(tunerr.PermissionDenied, err)
	case unix.ENOENT, unix.ENODEV:
		return tunerr.Wrap(tunerr.DeviceUnavailable, err)
	default:
		return tunerr.Wrap(tunerr.DeviceUnavailable, err)
	}
}

func (h *linuxHandle) Read(maxBytes int) ([]byte, error) {
	if err := validateMaxBytes(maxBytes); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpenLocked(); err != nil {
		return nil, err
	}
	buf := make([]byte, maxBytes)
	n, err := unix.Read(h.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, nil
		}
		return nil, tunerr.Wrap(tunerr.IoError, err)
	}
	if n <= 0 {
		return nil, nil
	}
	return buf[:n], nil
}

func (h *linuxHandle) Write(packet []byte) (int, error) {
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
	n, err := unix.Write(h.fd, packet)
	if err != nil {
		return 0, tunerr.Wrap(tunerr.IoError, err)
	}
	return n, nil
}

func (h *linuxHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return unix.Close(h.fd)
}

func (h *linuxHandle) Name() string     { return h.name }
func (h *linuxHandle) HandleID() uint64 { return h.id }

// Open creates a new tun device on Linux.
func Open(opts OpenOptions) (Handle, error) {
	return openLinux(opts)
}
