package log

// Logger is the logging surface used across the controller.
// Implementations must be safe for concurrent use; the periodic control
// tasks and the transport receive loop log from separate goroutines.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithField returns a child logger that appends key=value to every line.
	WithField(key string, value interface{}) Logger
	// WithFields is the multi-field form of WithField.
	WithFields(fields map[string]interface{}) Logger
}
