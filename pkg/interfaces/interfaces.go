// Package interfaces defines the small shared contracts used across userhub.
package interfaces

// Logger defines the interface for structured logging.
//
// Components receive a Logger explicitly at construction time; there is no
// package-level logger. The process entry point owns the lifecycle.
type Logger interface {
	// Debug logs debug level messages
	Debug(msg string, fields ...map[string]interface{})

	// Info logs info level messages
	Info(msg string, fields ...map[string]interface{})

	// Warn logs warning level messages
	Warn(msg string, fields ...map[string]interface{})

	// Error logs error level messages
	Error(msg string, err error, fields ...map[string]interface{})

	// Fatal logs fatal level messages and exits
	Fatal(msg string, err error, fields ...map[string]interface{})

	// WithFields returns a logger with additional fields
	WithFields(fields map[string]interface{}) Logger
}
