// Package corelog provides the leveled logger used throughout pol.
//
// The core never writes to stdout/stderr on its own (external
// collaborators own user-facing output); it only ever logs through
// this package, same as the module it's modeled on logs everything
// through a single package-level *logging.Logger.
package corelog

import (
	"os"

	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("pol")

var stderrFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{level:.6s} ▶ %{message}`,
)

// Setup installs a stderr-backed leveled logger. defaultLevel is used
// unless POL_LOG_LEVEL names a valid logging.Level.
func Setup(defaultLevel logging.Level) *logging.Logger {
	backend := logging.NewLogBackend(os.Stderr, "", 0)
	logging.SetFormatter(stderrFormat)
	leveled := logging.AddModuleLevel(backend)

	level := defaultLevel
	if lvl, err := logging.LogLevel(os.Getenv("POL_LOG_LEVEL")); err == nil {
		level = lvl
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
	return log
}

// Log returns the package-level logger. Safe to call before Setup;
// go-logging buffers at NOTICE level until a backend is installed.
func Log() *logging.Logger {
	return log
}
