package cs43l22

import (
	"io"
	"log/slog"
	"os"
	"sync"
)

// Component identifies a subsystem for log filtering.
type Component string

// Component identifiers.
const (
	ComponentCodec  Component = "codec"
	ComponentStream Component = "stream"
	ComponentPlayer Component = "player"
	ComponentBus    Component = "bus"
)

var (
	// DefaultLogger is the logger used when no logger is passed to a constructor.
	DefaultLogger *slog.Logger

	logLevel = new(slog.LevelVar)
	logMutex sync.RWMutex
)

func init() {
	logLevel.Set(slog.LevelWarn)
	DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// SetLogLevel sets the minimum level of the default logger.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// SetLogger replaces the default logger.
func SetLogger(logger *slog.Logger) {
	logMutex.Lock()
	defer logMutex.Unlock()

	DefaultLogger = logger
}

// NewLogger creates a text logger writing to w at the package log level.
func NewLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}

// componentLogger returns l, or the default logger when l is nil, tagged with the component.
func componentLogger(l *slog.Logger, component Component) *slog.Logger {
	if l == nil {
		logMutex.RLock()
		l = DefaultLogger
		logMutex.RUnlock()
	}

	return l.With("component", string(component))
}
