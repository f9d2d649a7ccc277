//go:build darwin

package iface

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// Darwin utun device: PF_SYSTEM/SOCK_DGRAM/SYSPROTO_CONTROL socket,
// bound via connect(sockaddr_ctl) to the "com.apple.net.utun_control"
// kernel control, with the assigned name recovered via
// getsockopt(UTUN_OPT_IFNAME). Every read/write carries a 4-byte
// big-endian address-family prefix (framing.go).
const (
	sysprotoControl  = 2
	afSysControl     = 2
	utunOptIfname    = 2
	utunControlName  = "com.apple.net.utun_control"
	ioctlCTLIOCGINFO = 0xc0644e03
)

type darwinHandle struct {
	handleState
	fd int
}

// openDarwin creates a utun device. opts.Name of the form "utunN"
// requests unit N+1; any other value (or empty) lets the kernel assign
// the first free unit.
func openDarwin(opts OpenOptions) (Handle, error) {
	fd, err := unix.Socket(unix.AF_SYSTEM, unix.SOCK_DGRAM, sysprotoControl)
	if err != nil {
		return nil, translateDarwinOpenErr(err)
	}
	ok := false
	defer func() {
		if !ok {
			unix.Close(fd)
		}
	}()

	ctlID, err := getControlID(fd)
	if err != nil {
		return nil, translateDarwinOpenErr(err)
	}

	unit := requestedUnit(opts.Name)
	if err := connectControl(fd, ctlID, unit); err != nil {
		return nil, translateDarwinOpenErr(err)
	}

	name, err := getAssignedName(fd)
	if err != nil {
		return nil, translateDarwinOpenErr(err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		return nil, tunerr.Wrap(tunerr.DeviceUnavailable, err)
	}

	ok = true
	return &darwinHandle{handleState: newHandleState(name), fd: fd}, nil
}

// requestedUnit parses "utunN" into the 1-based control unit N+1. A
// name that doesn't match, or an empty name, requests automatic
// assignment (unit 0, meaning "first free").
func requestedUnit(name string) uint32 {
	if !strings.HasPrefix(name, "utun") {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimPrefix(name, "utun"))
	if err != nil || n < 0 || n >= 255 {
		return 0
	}
	return uint32(n + 1)
}

func getControlID(fd int) ([4]byte, error) {
	// struct ctl_info { u_int32_t ctl_id; char ctl_name[96]; }
	var ctlInfo [100]byte
	copy(ctlInfo[4:], []byte(utunControlName))
	if _, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(ioctlCTLIOCGINFO),
		uintptr(unsafe.Pointer(&ctlInfo[0]))); errno != 0 {
		return [4]byte{}, errno
	}
	var id [4]byte
	copy(id[:], ctlInfo[:4])
	return id, nil
}

func connectControl(fd int, ctlID [4]byte, unit uint32) error {
	// struct sockaddr_ctl { u_char sc_len, sc_family; u_int16_t ss_sysaddr; u_int32_t sc_id, sc_unit; ... }
	var addr [32]byte
	addr[0] = 32
	addr[1] = unix.AF_SYSTEM
	addr[2] = afSysControl
	copy(addr[4:8], ctlID[:])
	if unit != 0 {
		addr[8] = byte(unit)
		addr[9] = byte(unit >> 8)
		addr[10] = byte(unit >> 16)
		addr[11] = byte(unit >> 24)
	}
	_, _, errno := unix.Syscall(unix.SYS_CONNECT, uintptr(fd), uintptr(unsafe.Pointer(&addr[0])), 32)
	if errno != 0 {
		return errno
	}
	return nil
}

func getAssignedName(fd int) (string, error) {
	nameData := make([]byte, 32)
	nameLen := uintptr(len(nameData))
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), sysprotoControl,
		utunOptIfname, uintptr(unsafe.Pointer(&nameData[0])), uintptr(unsafe.Pointer(&nameLen)), 0)
	if errno != 0 {
		return "", errno
	}
	if nameLen == 0 {
		return "", fmt.Errorf("utun returned an empty interface name")
	}
	return string(nameData[:nameLen-1]), nil
}

func translateDarwinOpenErr(err error) error {
	switch err {
	case unix.EACCES, unix.EPERM:
		return tunerr.Wrap(tunerr.PermissionDenied, err)
	case unix.ENOENT, unix.EPFNOSUPPORT, unix.EPROTONOSUPPORT:
		return tunerr.Wrap(tunerr.DeviceUnavailable, err)
	default:
		return tunerr.Wrap(tunerr.DeviceUnavailable, err)
	}
}

func (h *darwinHandle) Read(maxBytes int) ([]byte, error) {
	if err := validateMaxBytes(maxBytes); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.checkOpenLocked(); err != nil {
		return nil, err
	}
	buf := make([]byte, maxBytes+darwinFamilyPrefixLen)
	n, err := unix.Read(h.fd, buf)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return nil, nil
		}
		return nil, tunerr.Wrap(tunerr.IoError, err)
	}
	return stripDarwinFamilyPrefix(buf[:n]), nil
}

func (h *darwinHandle) Write(packet []byte) (int, error) {
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
	framed := prependDarwinFamilyPrefix(packet)
	n, err := unix.Write(h.fd, framed)
	if err != nil {
		return 0, tunerr.Wrap(tunerr.IoError, err)
	}
	written := n - darwinFamilyPrefixLen
	if written < 0 {
		written = 0
	}
	return written, nil
}

func (h *darwinHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	return unix.Close(h.fd)
}

func (h *darwinHandle) Name() string     { return h.name }
func (h *darwinHandle) HandleID() uint64 { return h.id }

// Open creates a new utun device on Darwin.
func Open(opts OpenOptions) (Handle, error) {
	return openDarwin(opts)
}
