// Package obslog is the structured logging front end taskrun uses for
// everything that isn't a phase/output event destined for a listener
// socket: coordination errors, observer panics, dropped datagrams.
package obslog

import (
	"io"
	"os"
	"strings"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is a structured logger at a configurable level.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing newline-delimited JSON to w at level.
func New(level logiface.Level, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return logiface.New[*stumpy.Event](
		logiface.WithLevel[*stumpy.Event](level),
		stumpy.WithStumpy(stumpy.WithWriter(w)),
	)
}

// NewStderr builds a Logger at level writing to os.Stderr.
func NewStderr(level logiface.Level) *Logger {
	return New(level, os.Stderr)
}

// LevelFromEnv reads TASKRUN_LOG_LEVEL, falling back to LevelInformational
// if unset or unrecognised. Recognised names match the syslog-style level
// names logiface.Level.String renders.
func LevelFromEnv() logiface.Level {
	return ParseLevel(os.Getenv("TASKRUN_LOG_LEVEL"))
}

// ParseLevel maps a case-insensitive level name to a logiface.Level,
// defaulting to LevelInformational for an empty or unrecognised value.
func ParseLevel(name string) logiface.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "disabled", "off", "none":
		return logiface.LevelDisabled
	case "emerg", "emergency", "panic":
		return logiface.LevelEmergency
	case "alert", "fatal":
		return logiface.LevelAlert
	case "crit", "critical":
		return logiface.LevelCritical
	case "err", "error":
		return logiface.LevelError
	case "warn", "warning":
		return logiface.LevelWarning
	case "notice":
		return logiface.LevelNotice
	case "info", "informational", "":
		return logiface.LevelInformational
	case "debug":
		return logiface.LevelDebug
	case "trace":
		return logiface.LevelTrace
	default:
		return logiface.LevelInformational
	}
}

// ObserverErrorHook builds an observe.ErrorHook-shaped function (id uint64,
// err error) that logs the recovered observer panic/error at LevelError.
func ObserverErrorHook(log *Logger) func(id uint64, err error) {
	return func(id uint64, err error) {
		log.Err().Err(err).Uint64("observer_id", id).Log("observer failed")
	}
}
