package logger

import (
	"strings"
	"sync"
)

// TestLogger is a Logger implementation for tests that captures all
// log messages instead of writing them anywhere.
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	fields   map[string]interface{}
}

// LogMessage represents a captured log message.
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a new test logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{
		messages: make([]LogMessage, 0),
		fields:   make(map[string]interface{}),
	}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  merged,
	})
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}

func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}

func (l *TestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.log("FATAL", msg, fields)
}

// WithField returns a logger with an additional field.
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a logger with additional fields. The returned logger
// shares the message buffer with its parent so tests can assert on a
// single captured stream.
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &sharedTestLogger{parent: l, fields: merged}
}

// WithError returns a logger with the error recorded as a field.
func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

// Messages returns a copy of all captured messages.
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasMessage reports whether any captured message contains the substring.
func (l *TestLogger) HasMessage(substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if strings.Contains(m.Message, substr) {
			return true
		}
	}
	return false
}

// Reset clears all captured messages.
func (l *TestLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}

// sharedTestLogger writes into its parent's buffer with extra fields.
type sharedTestLogger struct {
	parent *TestLogger
	fields map[string]interface{}
}

func (s *sharedTestLogger) log(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(s.fields)+len(fields))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	s.parent.log(level, msg, merged)
}

func (s *sharedTestLogger) Debug(msg string) { s.log("DEBUG", msg, nil) }
func (s *sharedTestLogger) Info(msg string)  { s.log("INFO", msg, nil) }
func (s *sharedTestLogger) Warn(msg string)  { s.log("WARN", msg, nil) }
func (s *sharedTestLogger) Error(msg string) { s.log("ERROR", msg, nil) }
func (s *sharedTestLogger) Fatal(msg string) { s.log("FATAL", msg, nil) }

func (s *sharedTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	s.log("DEBUG", msg, fields)
}

func (s *sharedTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	s.log("INFO", msg, fields)
}

func (s *sharedTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	s.log("WARN", msg, fields)
}

func (s *sharedTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	s.log("ERROR", msg, fields)
}

func (s *sharedTestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	s.log("FATAL", msg, fields)
}

func (s *sharedTestLogger) WithField(key string, value interface{}) Logger {
	return s.WithFields(map[string]interface{}{key: value})
}

func (s *sharedTestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(s.fields)+len(fields))
	for k, v := range s.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &sharedTestLogger{parent: s.parent, fields: merged}
}

func (s *sharedTestLogger) WithError(err error) Logger {
	if err == nil {
		return s
	}
	return s.WithField("error", err.Error())
}
