// package shared defines shared helpers
package shared

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps and caller reporting enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true, ReportCaller: true}
	return log.NewWithOptions(w, opts)
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevelString parses level names like "debug" or "warn" and applies them.
// Unknown names leave the level unchanged and return false.
func SetLogLevelString(l *log.Logger, level string) bool {
	if level == "" {
		return false
	}
	ll, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return false
	}
	l.SetLevel(ll)
	return true
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}

// GenerateNonce returns a random opaque value suitable for an OAuth state parameter.
func GenerateNonce() string {
	return strings.ReplaceAll(GenerateID(), "-", "")
}
