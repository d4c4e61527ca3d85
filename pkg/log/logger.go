// Structured logging for the dualstrusion merger
//
// Provides a small logging system with support for:
// - Log levels (DEBUG, INFO, WARN, ERROR)
// - Structured fields (key-value pairs)
// - Text and JSON output
// - ANSI colors when writing to a terminal
// - Per-component loggers with prefixes
//
// There is no package-level default logger. Callers construct one and hand
// it to the components that log, so two merges never share mutable state.
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// DEBUG level for detailed debugging information
	DEBUG LogLevel = iota

	// INFO level for general informational messages
	INFO

	// WARN level for warning messages
	WARN

	// ERROR level for error messages
	ERROR

	// OFF suppresses all output
	OFF
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case OFF:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a string into a LogLevel
func ParseLevel(s string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR", "SEVERE":
		return ERROR
	case "OFF", "NONE":
		return OFF
	default:
		return INFO
	}
}

// OutputFormat specifies the output format for log messages
type OutputFormat int

const (
	// FormatText outputs human-readable text format
	FormatText OutputFormat = iota
	// FormatJSON outputs machine-readable JSON format
	FormatJSON
)

// Fields is a map of structured logging fields
type Fields map[string]interface{}

// sink is the shared output state of a logger and all loggers derived
// from it with WithPrefix.
type sink struct {
	mu         sync.Mutex
	writer     io.Writer
	level      LogLevel
	timeFormat string
	colorize   bool
	outFormat  OutputFormat
	caller     bool
}

// Logger writes leveled, prefixed log lines.
type Logger struct {
	prefix string
	fields Fields
	out    *sink
}

// Entry represents a single log entry with fields
type Entry struct {
	logger *Logger
	fields Fields
}

var (
	ansiColors = map[LogLevel]string{
		DEBUG: "\x1b[36m", // Cyan
		INFO:  "\x1b[32m", // Green
		WARN:  "\x1b[33m", // Yellow
		ERROR: "\x1b[31m", // Red
	}
	ansiReset = "\x1b[0m"
)

// New creates a logger writing to stderr. Colors are enabled only when
// stderr is a terminal and NO_COLOR is unset.
func New(prefix string) *Logger {
	return &Logger{
		prefix: prefix,
		fields: Fields{},
		out: &sink{
			writer:     os.Stderr,
			level:      INFO,
			timeFormat: "2006-01-02 15:04:05.000",
			colorize:   os.Getenv("NO_COLOR") == "" && IsTerminal(os.Stderr),
			outFormat:  FormatText,
		},
	}
}

// Discard returns a logger that drops every message.
func Discard() *Logger {
	l := New("")
	l.out.writer = io.Discard
	l.out.level = OFF
	return l
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level LogLevel) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.level = level
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() LogLevel {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	return l.out.level
}

// SetWriter sets the output writer (e.g., for testing). Colors are
// re-evaluated for the new writer.
func (l *Logger) SetWriter(w io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.writer = w
	if f, ok := w.(*os.File); ok {
		l.out.colorize = os.Getenv("NO_COLOR") == "" && IsTerminal(f)
	} else {
		l.out.colorize = false
	}
}

// SetTimeFormat sets the time format string
func (l *Logger) SetTimeFormat(format string) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.timeFormat = format
}

// SetColorize enables or disables colorized output
func (l *Logger) SetColorize(enable bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.colorize = enable
}

// SetFormat sets the output format (FormatText or FormatJSON)
func (l *Logger) SetFormat(format OutputFormat) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.outFormat = format
}

// SetCaller enables or disables caller info in log output
func (l *Logger) SetCaller(enable bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.caller = enable
}

// WithPrefix returns a logger sharing this logger's output with a new prefix.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{prefix: prefix, fields: l.fields, out: l.out}
}

// With returns a logger that attaches the given fields to every message.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{prefix: l.prefix, fields: merged, out: l.out}
}

// WithField returns an Entry with the given field
func (l *Logger) WithField(key string, value interface{}) *Entry {
	return &Entry{logger: l, fields: Fields{key: value}}
}

// WithFields returns an Entry with the given fields
func (l *Logger) WithFields(fields Fields) *Entry {
	return &Entry{logger: l, fields: fields}
}

// WithError returns an Entry with the error field set
func (l *Logger) WithError(err error) *Entry {
	return l.WithField("error", err.Error())
}

func getCaller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

// JSONLogEntry is the structure for JSON formatted log entries
type JSONLogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Logger    string                 `json:"logger"`
	Message   string                 `json:"message"`
	Caller    string                 `json:"caller,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func (l *Logger) formatText(level LogLevel, msg string, fields Fields, caller string) string {
	var sb strings.Builder
	sb.WriteString(time.Now().Format(l.out.timeFormat))
	sb.WriteString(fmt.Sprintf(" [%-5s] ", level.String()))

	if l.out.colorize {
		sb.WriteString(ansiColors[level])
	}
	sb.WriteString(l.prefix)
	if l.out.colorize {
		sb.WriteString(ansiReset)
	}
	sb.WriteString(": ")
	sb.WriteString(msg)

	if caller != "" {
		sb.WriteString(" (")
		sb.WriteString(caller)
		sb.WriteString(")")
	}

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" {")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, fields[k])
		}
		sb.WriteString("}")
	}

	sb.WriteString("\n")
	return sb.String()
}

func (l *Logger) formatJSON(level LogLevel, msg string, fields Fields, caller string) string {
	entry := JSONLogEntry{
		Timestamp: time.Now().Format(time.RFC3339Nano),
		Level:     level.String(),
		Logger:    l.prefix,
		Message:   msg,
		Caller:    caller,
	}
	if len(fields) > 0 {
		entry.Fields = fields
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal log entry: %v"}`+"\n", err)
	}
	return string(data) + "\n"
}

// logInternal is the core logging function. Persistent fields are merged
// under the per-entry fields.
func (l *Logger) logInternal(level LogLevel, msg string, fields Fields, callerSkip int) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if level < l.out.level || l.out.level == OFF {
		return
	}

	all := fields
	if len(l.fields) > 0 {
		all = make(Fields, len(l.fields)+len(fields))
		for k, v := range l.fields {
			all[k] = v
		}
		for k, v := range fields {
			all[k] = v
		}
	}

	caller := ""
	if l.out.caller {
		caller = getCaller(callerSkip)
	}

	var output string
	if l.out.outFormat == FormatJSON {
		output = l.formatJSON(level, msg, all, caller)
	} else {
		output = l.formatText(level, msg, all, caller)
	}
	fmt.Fprint(l.out.writer, output)
}

func (l *Logger) log(level LogLevel, msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logInternal(level, msg, nil, 4)
}

// Debug logs a message at DEBUG level
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args...)
}

// Info logs a message at INFO level
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args...)
}

// Warn logs a message at WARN level
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args...)
}

// Error logs a message at ERROR level
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, args...)
}

// Entry methods - log with fields

// WithField adds a field to the entry
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.WithFields(Fields{key: value})
}

// WithFields adds multiple fields to the entry
func (e *Entry) WithFields(fields Fields) *Entry {
	newFields := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &Entry{logger: e.logger, fields: newFields}
}

// WithError adds an error field to the entry
func (e *Entry) WithError(err error) *Entry {
	return e.WithField("error", err.Error())
}

// Debug logs at DEBUG level with fields
func (e *Entry) Debug(msg string) {
	e.logger.logInternal(DEBUG, msg, e.fields, 3)
}

// Info logs at INFO level with fields
func (e *Entry) Info(msg string) {
	e.logger.logInternal(INFO, msg, e.fields, 3)
}

// Warn logs at WARN level with fields
func (e *Entry) Warn(msg string) {
	e.logger.logInternal(WARN, msg, e.fields, 3)
}

// Error logs at ERROR level with fields
func (e *Entry) Error(msg string) {
	e.logger.logInternal(ERROR, msg, e.fields, 3)
}

// Warnf logs formatted message at WARN level with fields
func (e *Entry) Warnf(format string, args ...interface{}) {
	e.logger.logInternal(WARN, fmt.Sprintf(format, args...), e.fields, 3)
}

// ConfigureFromEnv applies environment-based configuration to the logger.
// Environment variables:
//   - DUALSTRUSION_LOG_LEVEL: DEBUG, INFO, WARN, ERROR, OFF
//   - DUALSTRUSION_LOG_FORMAT: text, json
//   - DUALSTRUSION_LOG_CALLER: any non-empty value enables caller info
//   - NO_COLOR: any non-empty value disables colors
func ConfigureFromEnv(l *Logger) {
	if levelStr := os.Getenv("DUALSTRUSION_LOG_LEVEL"); levelStr != "" {
		l.SetLevel(ParseLevel(levelStr))
	}
	if formatStr := os.Getenv("DUALSTRUSION_LOG_FORMAT"); formatStr != "" {
		switch strings.ToLower(formatStr) {
		case "json":
			l.SetFormat(FormatJSON)
		case "text":
			l.SetFormat(FormatText)
		}
	}
	if os.Getenv("DUALSTRUSION_LOG_CALLER") != "" {
		l.SetCaller(true)
	}
	if os.Getenv("NO_COLOR") != "" {
		l.SetColorize(false)
	}
}
