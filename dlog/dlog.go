// Package dlog provides the diagnostic logger used for degraded-construction
// warnings and unknown-metric notices. It never carries the specified report
// formats (print_stats, the miss-dump, the CSV outputs); those are written
// directly to their destinations.
package dlog

import (
	"os"

	"github.com/op/go-logging"
	"github.com/urfave/cli/v2"
)

// LevelFlag is the CLI flag cmd/cachesim binds to select the log level.
var LevelFlag = cli.StringFlag{
	Name:    "log",
	Aliases: []string{"l"},
	Usage:   `level of diagnostic logging ("critical", "error", "warning", "notice", "info", "debug"; default: info)`,
	Value:   "info",
}

const defaultFormat = "%{time:15:04:05.000} %{color}%{level:-8s} %{shortpkg}/%{shortfunc}%{color:reset}: %{message}"

// Logger is the diagnostic surface used across this module. Avoid Fatal and
// Panic outside of cmd/cachesim's top level.
type Logger interface {
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Critical(args ...interface{})
	Criticalf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Warning(args ...interface{})
	Warningf(format string, args ...interface{})
	Notice(args ...interface{})
	Noticef(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
}

// New returns a Logger at the given level, named module. An unrecognized
// level falls back to INFO.
func New(level string, module string) Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	fm := logging.MustStringFormatter(defaultFormat)
	fmtBackend := logging.NewBackendFormatter(backend, fm)

	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}
	lvlBackend := logging.AddModuleLevel(fmtBackend)
	lvlBackend.SetLevel(lvl, "")

	logging.SetBackend(lvlBackend)
	return logging.MustGetLogger(module)
}

// Nop is a Logger that discards every message; Fatal and Fatalf still exit
// the process with status 1. Engines and tools constructed without an
// explicit logger use this, so diagnostics are opt-in.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Fatal(args ...interface{})                 { os.Exit(1) }
func (nopLogger) Fatalf(format string, args ...interface{}) { os.Exit(1) }
func (nopLogger) Critical(args ...interface{})                 {}
func (nopLogger) Criticalf(format string, args ...interface{}) {}
func (nopLogger) Error(args ...interface{})                    {}
func (nopLogger) Errorf(format string, args ...interface{})    {}
func (nopLogger) Warning(args ...interface{})                  {}
func (nopLogger) Warningf(format string, args ...interface{})  {}
func (nopLogger) Notice(args ...interface{})                   {}
func (nopLogger) Noticef(format string, args ...interface{})   {}
func (nopLogger) Info(args ...interface{})                     {}
func (nopLogger) Infof(format string, args ...interface{})     {}
func (nopLogger) Debug(args ...interface{})                    {}
func (nopLogger) Debugf(format string, args ...interface{})    {}
