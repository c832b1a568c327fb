// Package logger provides the process-wide structured logger.
// It is a thin layer over go-hclog so components can either call the
// package helpers or take a named hclog.Logger of their own.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Options controls how the root logger is built
type Options struct {
	Name   string
	Level  string // trace, debug, info, warn, error
	Format string // json or text
	Output io.Writer
}

var (
	mu   sync.RWMutex
	root hclog.Logger = hclog.New(&hclog.LoggerOptions{
		Name:   "gallery",
		Level:  levelFromEnv(),
		Output: os.Stderr,
	})
)

// Configure replaces the root logger
func Configure(opts Options) hclog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.Name == "" {
		opts.Name = "gallery"
	}

	l := hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      hclog.LevelFromString(opts.Level),
		JSONFormat: strings.EqualFold(opts.Format, "json"),
		Output:     opts.Output,
	})

	mu.Lock()
	root = l
	mu.Unlock()
	return l
}

// Default returns the root logger
func Default() hclog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Named returns a sub-logger of the root
func Named(name string) hclog.Logger {
	return Default().Named(name)
}

// OrNull returns l, or a discarding logger when l is nil
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}

// Info logs informational messages
func Info(msg string, args ...interface{}) {
	Default().Info(msg, args...)
}

// Warn logs warning messages
func Warn(msg string, args ...interface{}) {
	Default().Warn(msg, args...)
}

// Error logs error messages
func Error(msg string, args ...interface{}) {
	Default().Error(msg, args...)
}

// Debug logs debug messages
func Debug(msg string, args ...interface{}) {
	Default().Debug(msg, args...)
}

func levelFromEnv() hclog.Level {
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if l := hclog.LevelFromString(lvl); l != hclog.NoLevel {
			return l
		}
	}
	return hclog.Info
}
