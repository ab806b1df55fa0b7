// Package logging builds the hclog loggers shared by every themer component.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Options configures the root logger.
type Options struct {
	// Name is the root logger name (default "themer").
	Name string

	// Level is one of trace, debug, info, warn, error, off.
	Level string

	// Output receives log lines. Defaults to os.Stderr.
	Output io.Writer

	// JSON switches to JSON formatted lines.
	JSON bool
}

// New creates the root logger for the process.
func New(opts Options) hclog.Logger {
	name := opts.Name
	if name == "" {
		name = "themer"
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       name,
		Level:      ParseLevel(opts.Level),
		Output:     out,
		JSONFormat: opts.JSON,
	})
}

// ParseLevel converts a level name into an hclog level, defaulting to Info.
func ParseLevel(level string) hclog.Level {
	if strings.TrimSpace(level) == "" {
		return hclog.Info
	}
	l := hclog.LevelFromString(level)
	if l == hclog.NoLevel {
		return hclog.Info
	}
	return l
}

// Discard returns a logger that drops everything. Used by tests and by
// components constructed without a logger.
func Discard() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   "themer",
		Output: io.Discard,
		Level:  hclog.Off,
	})
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l hclog.Logger) hclog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
