package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with key/value convenience methods
type Logger struct {
	zl     zerolog.Logger
	fields []interface{} // key/value pairs added via With()
}

// global is used by components constructed without an explicit logger
var global = NewDevelopment()

// NewDevelopment creates a development logger with pretty console output
func NewDevelopment() *Logger {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	return NewWithWriter(output, zerolog.DebugLevel)
}

// NewNop creates a logger that discards everything
func NewNop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// NewWithWriter creates a logger with custom writer
func NewWithWriter(w io.Writer, level zerolog.Level) *Logger {
	zl := zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{zl: zl}
}

// SetGlobal sets the global logger instance
func SetGlobal(logger *Logger) {
	global = logger
}

// Global returns the global logger instance
func Global() *Logger {
	return global
}

// emit writes msg with stored fields followed by the given key/value pairs.
// Odd trailing keys and non-string keys are ignored.
func (l *Logger) emit(e *zerolog.Event, msg string, kv []interface{}) {
	if e == nil {
		return
	}
	appendFields(e, l.fields)
	appendFields(e, kv)
	e.Msg(msg)
}

func appendFields(e *zerolog.Event, kv []interface{}) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		switch v := kv[i+1].(type) {
		case error:
			// Errors marshal as {} through Interface
			e.Str(key, v.Error())
		case time.Duration:
			e.Dur(key, v)
		case string:
			e.Str(key, v)
		default:
			e.Interface(key, v)
		}
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.emit(l.zl.Debug(), msg, fields)
}

// Info logs an info message
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.emit(l.zl.Info(), msg, fields)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.emit(l.zl.Warn(), msg, fields)
}

// Error logs an error message
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.emit(l.zl.Error(), msg, fields)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(msg string, fields ...interface{}) {
	l.emit(l.zl.Fatal(), msg, fields)
}

// With creates a child logger with additional fields
func (l *Logger) With(fields ...interface{}) *Logger {
	merged := make([]interface{}, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)

	return &Logger{
		zl:     l.zl,
		fields: merged,
	}
}

// WithContext returns a logger carrying the request fields stored in ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := extractContextFields(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}

// Named returns a child logger tagged with the component that emits it.
func (l *Logger) Named(component string) *Logger {
	return l.With("component", component)
}
