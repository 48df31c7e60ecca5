// Package logging provides the structured logger used across every
// component of the runtime. It wraps zap the way go.viam.com/rdk/logging
// does: a small Level enum, constructors for production and test loggers,
// and a Logger interface so components never depend on *zap.Logger
// directly.
package logging

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Level is the severity of a log record.
type Level int

const (
	// DEBUG is verbose, developer-facing detail.
	DEBUG Level = iota
	// INFO is routine operational detail.
	INFO
	// WARN marks a recoverable anomaly.
	WARN
	// ERROR marks a failure that needs attention.
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "Debug"
	case INFO:
		return "Info"
	case WARN:
		return "Warn"
	case ERROR:
		return "Error"
	default:
		return "Unknown"
	}
}

// LevelFromString parses a level, accepting "warning" as an alias for WARN.
func LevelFromString(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return 0, errors.Errorf("invalid log level %q", s)
	}
}

// MarshalJSON implements json.Marshaler.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := LevelFromString(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
