// Package log provides the structured logging seam used by both the
// host runtime and the simulated coprocessor firmware.
package log

import (
	"os"

	"github.com/rs/zerolog"
)

// Level mirrors the severity levels the guest sandbox ABI exposes via
// the log(level, line) capability import.
type Level uint8

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
	LevelTrace
)

// Logger is the narrow logging surface the rest of the module depends
// on, so call sites never import zerolog directly.
type Logger interface {
	Errorf(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Debugf(format string, args ...interface{})
	Tracef(format string, args ...interface{})
	// Log dispatches a message at the given Level, for bridging the
	// guest sandbox's log(level, line) import.
	Log(level Level, line string)
	// With returns a logger carrying an additional field, e.g. the
	// current app name or coprocessor core.
	With(key, value string) Logger
}

type logger struct {
	z zerolog.Logger
}

// New returns a console-writing Logger.
func New() Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}
	return &logger{z: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *logger) Errorf(format string, args ...interface{}) { l.z.Error().Msgf(format, args...) }
func (l *logger) Warnf(format string, args ...interface{})  { l.z.Warn().Msgf(format, args...) }
func (l *logger) Infof(format string, args ...interface{})  { l.z.Info().Msgf(format, args...) }
func (l *logger) Debugf(format string, args ...interface{}) { l.z.Debug().Msgf(format, args...) }
func (l *logger) Tracef(format string, args ...interface{}) { l.z.Trace().Msgf(format, args...) }

func (l *logger) Log(level Level, line string) {
	switch level {
	case LevelError:
		l.z.Error().Msg(line)
	case LevelWarn:
		l.z.Warn().Msg(line)
	case LevelInfo:
		l.z.Info().Msg(line)
	case LevelDebug:
		l.z.Debug().Msg(line)
	case LevelTrace:
		l.z.Trace().Msg(line)
	}
}

func (l *logger) With(key, value string) Logger {
	return &logger{z: l.z.With().Str(key, value).Logger()}
}
