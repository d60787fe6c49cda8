// Package logger provides structured logging for distillation sessions
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

// Logger is the logging sink used throughout distill
type Logger interface {
	Info(message string, fields ...Field)
	Error(message string, fields ...Field)
	Warn(message string, fields ...Field)
	Debug(message string, fields ...Field)
	WithSession(session string) Logger
}

// Field represents a structured logging field
type Field struct {
	Key   string
	Value interface{}
}

// WithField creates a new field
func WithField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// SessionLogger implements Logger on top of logrus
type SessionLogger struct {
	logger  *logrus.Logger
	session string
}

// ConsoleFormatter renders entries as single colored lines
type ConsoleFormatter struct {
	TimestampFormat string
	DisableColors   bool
}

// Format implements logrus.Formatter
func (f *ConsoleFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var levelColor *color.Color
	switch entry.Level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		levelColor = color.New(color.FgRed, color.Bold)
	case logrus.WarnLevel:
		levelColor = color.New(color.FgYellow, color.Bold)
	case logrus.DebugLevel, logrus.TraceLevel:
		levelColor = color.New(color.FgWhite, color.Faint)
	default:
		levelColor = color.New(color.FgCyan)
	}
	levelText := strings.ToUpper(entry.Level.String())

	var b strings.Builder
	b.WriteString("[")
	b.WriteString(entry.Time.Format(f.TimestampFormat))
	b.WriteString("] ")
	if f.DisableColors {
		b.WriteString(levelText)
	} else {
		b.WriteString(levelColor.Sprint(levelText))
	}
	b.WriteString(": ")

	if session, ok := entry.Data["session"]; ok {
		prefix := fmt.Sprintf("%v", session)
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		if f.DisableColors {
			fmt.Fprintf(&b, "(%s) ", prefix)
		} else {
			fmt.Fprintf(&b, "(%s) ", color.New(color.FgBlue).Sprint(prefix))
		}
	}
	b.WriteString(entry.Message)

	// Sorted so output is stable between runs.
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		if k != "session" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > 0 {
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, entry.Data[k]))
		}
		fields := " {" + strings.Join(parts, ", ") + "}"
		if f.DisableColors {
			b.WriteString(fields)
		} else {
			b.WriteString(color.New(color.FgWhite, color.Faint).Sprint(fields))
		}
	}

	b.WriteString("\n")
	return []byte(b.String()), nil
}

// CreateLogger creates a console logger, optionally mirrored to logFile
func CreateLogger(logFile string, logLevel string) Logger {
	log := newLogrus(logLevel, false)

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			log.SetOutput(io.MultiWriter(os.Stderr, file))
		}
	}

	return &SessionLogger{logger: log}
}

// CreateLoggerWithOutput creates a logger with custom output (for testing)
func CreateLoggerWithOutput(logLevel string, output io.Writer) Logger {
	log := newLogrus(logLevel, true)
	log.SetOutput(output)
	return &SessionLogger{logger: log}
}

func newLogrus(logLevel string, disableColors bool) *logrus.Logger {
	log := logrus.New()

	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stderr)
	log.SetFormatter(&ConsoleFormatter{
		TimestampFormat: "15:04:05",
		DisableColors:   disableColors,
	})
	return log
}

// WithSession returns a logger that tags every entry with session
func (l *SessionLogger) WithSession(session string) Logger {
	return &SessionLogger{
		logger:  l.logger,
		session: session,
	}
}

func (l *SessionLogger) convertFields(fields []Field) logrus.Fields {
	result := make(logrus.Fields, len(fields)+1)
	if l.session != "" {
		result["session"] = l.session
	}
	for _, f := range fields {
		result[f.Key] = f.Value
	}
	return result
}

// Info logs an info message
func (l *SessionLogger) Info(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Info(message)
}

// Error logs an error message
func (l *SessionLogger) Error(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Error(message)
}

// Warn logs a warning message
func (l *SessionLogger) Warn(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Warn(message)
}

// Debug logs a debug message
func (l *SessionLogger) Debug(message string, fields ...Field) {
	l.logger.WithFields(l.convertFields(fields)).Debug(message)
}

// nopLogger discards everything
type nopLogger struct{}

// Nop returns a Logger that drops all entries
func Nop() Logger {
	return nopLogger{}
}

func (nopLogger) Info(string, ...Field) {}
func (nopLogger) Error(string, ...Field) {}
func (nopLogger) Warn(string, ...Field) {}
func (nopLogger) Debug(string, ...Field) {}
func (n nopLogger) WithSession(string) Logger { return n }
