package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyService   = "service"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyCategory  = "category"
	KeyAttempt   = "attempt"
	KeyDelay     = "delay"
	KeyDay       = "day"
	KeyCalendars = "calendars"
	KeyCount     = "count"
)

// Status values for consistent logging.
// Duplicated in the instrumentation package, which imports this one.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Setup installs a tint handler writing to w as the default slog logger and
// returns it. Debug output is enabled when debug is true.
func Setup(w io.Writer, debug bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(w),
	}))
	slog.SetDefault(logger)
	return logger
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// WithService returns a logger with the service attribute set.
func WithService(logger *slog.Logger, service string) *slog.Logger {
	return logger.With(slog.String(KeyService, service))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Category returns a slog attribute for an error category such as QUOTA.
func Category(category string) slog.Attr {
	return slog.String(KeyCategory, category)
}

// Attempt returns a slog attribute for a 1-based retry attempt.
func Attempt(n int) slog.Attr {
	return slog.Int(KeyAttempt, n)
}

// Delay returns a slog attribute for a backoff wait.
func Delay(d time.Duration) slog.Attr {
	return slog.Duration(KeyDelay, d)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Day returns a slog attribute for a calendar day, formatted as YYYY-MM-DD.
func Day(day time.Time) slog.Attr {
	return slog.String(KeyDay, day.Format(time.DateOnly))
}

// Calendars returns a slog attribute for the number of calendars queried.
// IDs are not logged because they are usually email addresses.
func Calendars(ids []string) slog.Attr {
	return slog.Int(KeyCalendars, len(ids))
}

// Count returns a slog attribute for a result count.
func Count(n int) slog.Attr {
	return slog.Int(KeyCount, n)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that slog omits from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(email)))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken returns a length indicator for a token without exposing any of it.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
