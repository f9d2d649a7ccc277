// Package tunerr defines the error taxonomy shared by every tunnel
// component: a closed set of Kinds that callers can switch on, each
// optionally wrapping an underlying OS or protocol error.
package tunerr

import (
	"errors"
	"fmt"
)

// Kind identifies the category of failure, independent of the
// underlying cause.
type Kind string

const (
	PermissionDenied    Kind = "permission_denied"
	DeviceUnavailable   Kind = "device_unavailable"
	PlatformUnsupported Kind = "platform_unsupported"
	InvalidArgument     Kind = "invalid_argument"
	AlreadyClosed       Kind = "already_closed"
	ProtocolError       Kind = "protocol_error"
	HandshakeTimeout    Kind = "handshake_timeout"
	ConfigurationFailed Kind = "configuration_failed"
	ToolingMissing      Kind = "tooling_missing"
	IoError             Kind = "io_error"
	StatsUnavailable    Kind = "stats_unavailable"
	SetupFailed         Kind = "setup_failed"
)

// Error is the concrete error type this module's operations use for the
// failure kinds below. It always carries a Kind; Err may be nil when
// the Kind alone is sufficient context. A few paths return plain
// errors instead, such as an OS error from a handle's Close or the
// cause Session.Stop records.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Msg != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, tunerr.New(Kind, "")) match any *Error with the
// same Kind, regardless of message or wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error with no wrapped cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error around an existing cause. Wrapping nil
// returns nil so call sites can do `return tunerr.Wrap(Kind, err)`
// unconditionally inside an `if err != nil` block without a second check.
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Wrapf is Wrap with a formatted message alongside the cause.
func Wrapf(kind Kind, err error, format string, args ...any) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and
// reports whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err is (or wraps) a *Error of the given Kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
