// Package logging provides the structured logger used by every component of the gateway.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// LogLevel orders messages by severity
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"debug", "info", "warn", "error", "fatal"}

func (l LogLevel) String() string {
	if l < LevelDebug || l > LevelFatal {
		return "info"
	}
	return levelNames[l]
}

// LogFormat selects how entries are rendered
type LogFormat string

const (
	FormatJSON LogFormat = "json"
	FormatText LogFormat = "text"
)

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Fields is a set of structured key/value pairs attached to a log entry
type Fields map[string]interface{}

// LogEntry is the JSON shape of one line
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Caller    string `json:"caller,omitempty"`
}

// output is shared by a logger and every child derived from it
type output struct {
	mu sync.Mutex
	w  io.Writer
}

// Logger writes leveled entries with the fields it was derived with.
// Children are cheap and never modify their parent.
type Logger struct {
	level  LogLevel
	format LogFormat
	out    *output
	fields Fields
}

// NewLogger creates a logger writing to stdout
func NewLogger(level LogLevel, format LogFormat) *Logger {
	return &Logger{level: level, format: format, out: &output{w: os.Stdout}}
}

func (l *Logger) with(extra map[string]interface{}) *Logger {
	fields := make(Fields, len(l.fields)+len(extra))
	for k, v := range l.fields {
		fields[k] = v
	}
	for k, v := range extra {
		fields[k] = v
	}
	child := *l
	child.fields = fields
	return &child
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(map[string]interface{}{key: value})
}

func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return l.with(fields)
}

// WithError attaches err under "error"; a nil error returns l unchanged
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *Logger) Debug(message string) { l.write(LevelDebug, message) }
func (l *Logger) Info(message string)  { l.write(LevelInfo, message) }
func (l *Logger) Warn(message string)  { l.write(LevelWarn, message) }
func (l *Logger) Error(message string) { l.write(LevelError, message) }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(LevelInfo, fmt.Sprintf(format, args...))
}

// Fatal logs and exits with status 1
func (l *Logger) Fatal(message string) {
	l.write(LevelFatal, message)
	os.Exit(1)
}

func (l *Logger) write(level LogLevel, message string) {
	if level < l.level {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(timestampLayout),
		Level:     level.String(),
		Message:   message,
		Fields:    l.fields,
	}
	if level >= LevelError {
		// 2 frames: write and the exported method
		if _, file, line, ok := runtime.Caller(2); ok {
			entry.Caller = filepath.Base(filepath.Dir(file)) + "/" + filepath.Base(file) + ":" + strconv.Itoa(line)
		}
	}

	var line []byte
	if l.format == FormatText {
		line = []byte(renderText(entry))
	} else {
		var err error
		if line, err = json.Marshal(entry); err != nil {
			line = []byte(`{"level":"error","message":` + strconv.Quote("unencodable log entry: "+err.Error()) + `}`)
		}
	}
	line = append(line, '\n')

	l.out.mu.Lock()
	_, _ = l.out.w.Write(line)
	l.out.mu.Unlock()
}

// renderText writes "ts LEVEL message key=value ..." with sorted keys; values
// containing spaces or quotes are quoted
func renderText(entry LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Timestamp)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(entry.Level))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(textValue(entry.Fields[k]))
	}
	if entry.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(entry.Caller)
	}
	return b.String()
}

func textValue(v interface{}) string {
	s := fmt.Sprint(v)
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

// SetOutput redirects the logger and every logger sharing its output
func (l *Logger) SetOutput(w io.Writer) {
	l.out.mu.Lock()
	l.out.w = w
	l.out.mu.Unlock()
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// InitGlobalLogger replaces the process-wide logger
func InitGlobalLogger(level LogLevel, format LogFormat) {
	globalMu.Lock()
	globalLogger = NewLogger(level, format)
	globalMu.Unlock()
}

// GetGlobalLogger returns the process-wide logger, creating an info/json one
// on first use
func GetGlobalLogger() *Logger {
	globalMu.RLock()
	logger := globalLogger
	globalMu.RUnlock()
	if logger != nil {
		return logger
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger = NewLogger(LevelInfo, FormatJSON)
	}
	return globalLogger
}

type loggerKey struct{}

type requestIDKey struct{}

// WithLogger stores logger in ctx for FromContext
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request's logger, or the global one
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*Logger); ok {
			return logger
		}
	}
	return GetGlobalLogger()
}

// WithRequestID stores the request id and a logger tagged with it in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, requestID)
	return WithLogger(ctx, FromContext(ctx).WithField("requestId", requestID))
}

// RequestIDFromContext returns the request id set by WithRequestID, if any
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func Info(message string) {
	GetGlobalLogger().Info(message)
}

func Infof(format string, args ...interface{}) {
	GetGlobalLogger().Infof(format, args...)
}

func WithField(key string, value interface{}) *Logger {
	return GetGlobalLogger().WithField(key, value)
}

func WithFields(fields map[string]interface{}) *Logger {
	return GetGlobalLogger().WithFields(fields)
}

func WithError(err error) *Logger {
	return GetGlobalLogger().WithError(err)
}

// ParseLogLevel maps LOG_LEVEL; unknown values fall back to info
func ParseLogLevel(level string) LogLevel {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	if name == "" {
		return LevelInfo
	}
	for i, candidate := range levelNames {
		if candidate == name {
			return LogLevel(i)
		}
	}
	fmt.Fprintf(os.Stderr, "unknown log level %q, defaulting to info\n", level)
	return LevelInfo
}

// ParseLogFormat maps LOG_FORMAT; unknown values fall back to json
func ParseLogFormat(format string) LogFormat {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "text":
		return FormatText
	case "json", "":
		return FormatJSON
	default:
		fmt.Fprintf(os.Stderr, "unknown log format %q, defaulting to json\n", format)
		return FormatJSON
	}
}
