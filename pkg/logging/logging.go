// Package logging builds the zerolog loggers handed to every component.
// There is no package-level logger; callers pass the instance down.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options selects level and format.
type Options struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultOptions logs info and above in console format.
func DefaultOptions() Options {
	return Options{Level: "info", Format: FormatConsole}
}

// ParseLevel accepts zerolog level names, case-insensitively. An empty
// string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// New returns a logger writing to out.
func New(opts Options, out io.Writer) (zerolog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), err
	}
	switch strings.ToLower(opts.Format) {
	case FormatConsole, "":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q (want console or json)", opts.Format)
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger(), nil
}
