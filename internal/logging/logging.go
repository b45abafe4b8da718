// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu     sync.RWMutex
	logger = newDefault()

	debugEnabled = strings.EqualFold(os.Getenv("JALSAATHI_WORKER_DEBUG"), "1")
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Options selects the level and output format.
type Options struct {
	Level  string
	Format string
	Output io.Writer
}

// Setup replaces the global logger. Unknown levels fall back to info.
func Setup(opts Options) *logrus.Logger {
	l := logrus.New()
	if opts.Output != nil {
		l.SetOutput(opts.Output)
	} else {
		l.SetOutput(os.Stderr)
	}
	if strings.EqualFold(opts.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(strings.TrimSpace(opts.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	mu.Lock()
	logger = l
	mu.Unlock()
	return l
}

// L returns the global logger.
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithFields is shorthand for L().WithFields.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return L().WithFields(fields)
}

// Debugf logs only when JALSAATHI_WORKER_DEBUG=1, independent of the level.
func Debugf(format string, args ...interface{}) {
	mu.RLock()
	enabled := debugEnabled
	mu.RUnlock()
	if enabled {
		L().WithField("debug", true).Infof(format, args...)
	}
}

// SetDebug toggles Debugf output.
func SetDebug(enabled bool) {
	mu.Lock()
	debugEnabled = enabled
	mu.Unlock()
}
