// Package logging provides a centralized logging system for posegate.
// It wraps logrus to provide consistent logging across all components.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the application-wide logger instance.
var Logger *logrus.Logger

// Fields is an alias for logrus.Fields for convenience.
type Fields = logrus.Fields

// Options configures Init.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // text or nested
	File   string // empty disables file output

	// Rotation settings for File, passed to lumberjack.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func init() {
	Logger = logrus.New()
	Logger.SetFormatter(textFormatter())
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
}

func nestedFormatter() logrus.Formatter {
	return &formatter.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", filepath.Base(f.File), f.Line, s[len(s)-1])
		},
	}
}

// Init initializes the logger with the specified configuration.
func Init(opts Options) error {
	Logger.SetLevel(logrus.InfoLevel)
	SetLevel(opts.Level)

	switch opts.Format {
	case "nested":
		Logger.SetFormatter(nestedFormatter())
		Logger.SetReportCaller(true)
	default:
		Logger.SetFormatter(textFormatter())
		Logger.SetReportCaller(false)
	}

	if opts.File == "" {
		Logger.SetOutput(os.Stderr)
		return nil
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
		return err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		LocalTime:  true,
		Compress:   true,
	}

	// Write to both file and stderr
	Logger.SetOutput(io.MultiWriter(os.Stderr, fileWriter))
	return nil
}

func parseLevel(level string) *logrus.Level {
	var l logrus.Level
	switch level {
	case "debug":
		l = logrus.DebugLevel
	case "info":
		l = logrus.InfoLevel
	case "warn":
		l = logrus.WarnLevel
	case "error":
		l = logrus.ErrorLevel
	default:
		return nil
	}
	return &l
}

// SetLevel sets the logging level. Unknown levels are ignored.
func SetLevel(level string) {
	if l := parseLevel(level); l != nil {
		Logger.SetLevel(*l)
	}
}

// Debug logs a debug message.
func Debug(args ...interface{}) {
	Logger.Debug(args...)
}

// Debugf logs a formatted debug message.
func Debugf(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

// Info logs an info message.
func Info(args ...interface{}) {
	Logger.Info(args...)
}

// Infof logs a formatted info message.
func Infof(format string, args ...interface{}) {
	Logger.Infof(format, args...)
}

// Warn logs a warning message.
func Warn(args ...interface{}) {
	Logger.Warn(args...)
}

// Warnf logs a formatted warning message.
func Warnf(format string, args ...interface{}) {
	Logger.Warnf(format, args...)
}

// Error logs an error message.
func Error(args ...interface{}) {
	Logger.Error(args...)
}

// Errorf logs a formatted error message.
func Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

// WithFields returns an entry with fields attached.
func WithFields(fields Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithField returns an entry with a single field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithError returns an entry with an error attached.
func WithError(err error) *logrus.Entry {
	return Logger.WithError(err)
}

// Component returns a logger entry for a specific component.
func Component(name string) *logrus.Entry {
	return Logger.WithField("component", name)
}
