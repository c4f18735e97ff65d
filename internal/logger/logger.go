package logger

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
)

var base = hclog.New(&hclog.LoggerOptions{
	Name:   "filmsearch",
	Level:  hclog.Info,
	Output: os.Stderr,
})

// SetLevel adjusts the minimum log level ("debug", "info", "warn", "error")
func SetLevel(level string) {
	base.SetLevel(hclog.LevelFromString(level))
}

// Info logs informational messages
func Info(format string, args ...interface{}) {
	base.Info(fmt.Sprintf(format, args...))
}

// Warn logs warning messages
func Warn(format string, args ...interface{}) {
	base.Warn(fmt.Sprintf(format, args...))
}

// Error logs error messages
func Error(format string, args ...interface{}) {
	base.Error(fmt.Sprintf(format, args...))
}

// Debug logs debug messages
func Debug(format string, args ...interface{}) {
	base.Debug(fmt.Sprintf(format, args...))
}
