// package shared defines helpers used across the bot: logging, IDs, clocks.
package shared

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true}
	return log.NewWithOptions(w, opts)
}

// ComponentLogger creates a child [log.Logger] with a component prefix (e.g. "bot", "oauth").
func ComponentLogger(l *log.Logger, name string) *log.Logger {
	child := l.With()
	child.SetPrefix(name)
	return child
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// EpochNow returns the current time as integer epoch seconds.
//
// Token expiries are stored as epoch seconds to match the provider's expires_in arithmetic.
func EpochNow() int64 {
	return time.Now().Unix()
}
