// Package logging configures the structured JSON logger every core
// package and CLI command writes through, adapted from the teacher's
// pkg/logutils.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a logger that writes JSON to file, or to stdout when file
// is empty. level is one of debug, info, warn, error, fatal. Every event
// passes through a ContextHook so log lines carry the calling agent's
// name whenever the event is logged with a context stamped by
// WithAgentID.
func New(level, file string) (zerolog.Logger, func(), error) {
	closer := func() {}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, closer, fmt.Errorf("logging: parse level %q: %w", level, err)
	}

	writer := os.Stdout
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("logging: create log dir: %w", err)
		}
		osFile, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, closer, fmt.Errorf("logging: open log file: %w", err)
		}
		closer = func() { _ = osFile.Close() }
		writer = osFile
	}

	l := zerolog.New(writer).Hook(ContextHook{}).With().Timestamp().Logger().Level(lvl)
	return l, closer, nil
}

// Component returns a logger tagged with a "cmp" field, for packages that
// want their log lines attributable without threading a *zerolog.Logger
// through every function signature.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str("cmp", name).Logger()
}
