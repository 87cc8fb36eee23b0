// Package logging configures the gommon logger shared by Echo and the
// background components.
package logging

import (
	"io"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// jsonHeader mirrors Echo's default header but keeps the prefix so the API
// process and the worker can share one log stream.
const jsonHeader = `{"time":"${time_rfc3339}","level":"${level}","prefix":"${prefix}","file":"${short_file}","line":"${line}"}`

// New returns a logger writing JSON lines to out at the given level.
func New(prefix, level string, out io.Writer) *log.Logger {
	l := log.New(prefix)
	l.SetHeader(jsonHeader)
	l.SetLevel(ParseLevel(level))
	if out != nil {
		l.SetOutput(out)
	}
	return l
}

// ParseLevel maps a LOG_LEVEL value to a gommon level, defaulting to INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// Discard is a logger for tests and optional components.
func Discard() echo.Logger {
	l := log.New("-")
	l.SetOutput(io.Discard)
	return l
}
