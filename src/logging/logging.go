// Package logging provides the standard log.Logger setups this module
// uses, grounded on cmd/yggdrasil/main.go's stdout/file/syslog
// switch: gologme/log everywhere, with hashicorp/go-syslog backing the
// syslog destination.
package logging

import (
	"io"
	"os"

	"github.com/gologme/log"
	gsyslog "github.com/hashicorp/go-syslog"

	"github.com/appium/appium-ios-tuntap/src/tunerr"
)

// NewStdoutLogger returns a Logger writing to stdout.
func NewStdoutLogger() *log.Logger {
	return log.New(os.Stdout, "", log.Flags())
}

// NewFileLogger returns a Logger appending to the file at path.
func NewFileLogger(path string) (*log.Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, tunerr.Wrap(tunerr.IoError, err)
	}
	return log.New(f, "", log.Flags()), nil
}

// NewSyslogLogger returns a Logger writing to the platform syslog
// daemon under the given process tag. Date/time fields are stripped
// since syslog stamps entries itself.
func NewSyslogLogger(tag string) (*log.Logger, error) {
	syslogger, err := gsyslog.NewLogger(gsyslog.LOG_NOTICE, "DAEMON", tag)
	if err != nil {
		return nil, tunerr.Wrap(tunerr.SetupFailed, err)
	}
	return log.New(syslogger, "", log.Flags()&^(log.Ldate|log.Ltime)), nil
}

// NewLogger dispatches on a destination string: "stdout", "syslog", or
// a file path, the same three-way switch cmd/yggdrasil/main.go uses
// for its -logto flag.
func NewLogger(dest, tag string) (*log.Logger, error) {
	switch dest {
	case "", "stdout":
		return NewStdoutLogger(), nil
	case "syslog":
		return NewSyslogLogger(tag)
	default:
		return NewFileLogger(dest)
	}
}

// Discard returns a Logger that writes nowhere, for tests.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}
