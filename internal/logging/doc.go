// Package logging provides structured logging utilities for gtool.
//
// Logging uses the standard library's slog package. Setup installs a
// tint handler so terminal output stays readable, and the attribute helpers
// keep key names consistent between the CLI, the scheduler and the retry
// policy.
//
// # Usage Patterns
//
//	logger := logging.WithOperation(slog.Default(), "calendar.freebusy")
//	logger.Warn("retrying call",
//	    logging.Category("QUOTA"),
//	    logging.Attempt(1),
//	    logging.Err(err))
//
// User emails are hashed with AnonymizeEmail before they reach a log line.
package logging
