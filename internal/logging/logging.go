// Package logging hands out leveled component loggers sharing one level.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/labstack/gommon/log"
)

var (
	mu      sync.Mutex
	level   = log.INFO
	output  io.Writer
	loggers = map[string]*log.Logger{}
)

// SetLevel changes the level of every component logger.
// Unknown names fall back to info.
func SetLevel(name string) {
	mu.Lock()
	defer mu.Unlock()

	level = ParseLevel(name)
	for _, l := range loggers {
		l.SetLevel(level)
	}
}

// SetOutput redirects every component logger; nil restores stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	for _, l := range loggers {
		l.SetOutput(writer())
	}
}

// ParseLevel maps debug|info|warn|error|off to a gommon level.
func ParseLevel(name string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off", "none":
		return log.OFF
	default:
		return log.INFO
	}
}

// New returns the logger tagged with the component prefix. Repeated calls
// for the same component share one logger.
func New(component string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[component]; ok {
		return l
	}
	l := log.New(component)
	l.SetLevel(level)
	l.SetOutput(writer())
	loggers[component] = l
	return l
}

func writer() io.Writer {
	if output == nil {
		return os.Stdout
	}
	return output
}
