package utils

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	logger *logrus.Logger
)

// LogConfig represents logger configuration
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or text
	Output string `json:"output"` // stdout, stderr, or file path
}

// LogFields represents structured log fields
type LogFields map[string]interface{}

// Logger interface for abstraction
type Logger interface {
	Debug(msg string, fields ...LogFields)
	Info(msg string, fields ...LogFields)
	Warn(msg string, fields ...LogFields)
	Error(msg string, err error, fields ...LogFields)
	Fatal(msg string, err error, fields ...LogFields)
	WithFields(fields LogFields) Logger
	WithContext(ctx context.Context) Logger
}

// AppLogger implements Logger interface using logrus
type AppLogger struct {
	entry *logrus.Entry
}

// InitLogger initializes the global logger
func InitLogger(config *LogConfig) error {
	logger = logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
		logger.Warnf("Invalid log level '%s', defaulting to info", config.Level)
	}
	logger.SetLevel(level)

	switch strings.ToLower(config.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
			ForceColors:     false,
		})
	default:
		return fmt.Errorf("unsupported log format: %s", config.Format)
	}

	switch strings.ToLower(config.Output) {
	case "stdout", "":
		logger.SetOutput(os.Stdout)
	case "stderr":
		logger.SetOutput(os.Stderr)
	default:
		// Assume it's a file path
		file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(file)
	}

	return nil
}

// GetLogger returns a new AppLogger instance
func GetLogger() Logger {
	if logger == nil {
		log.Println("Warning: Logger not initialized, using fallback")
		InitLogger(&LogConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
	}

	return &AppLogger{
		entry: logger.WithFields(logrus.Fields{}),
	}
}

// Raw returns the underlying logrus logger for middleware that needs it.
func Raw() *logrus.Logger {
	if logger == nil {
		GetLogger()
	}
	return logger
}

func (l *AppLogger) Debug(msg string, fields ...LogFields) {
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields[0]))
	}
	entry.Debug(msg)
}

func (l *AppLogger) Info(msg string, fields ...LogFields) {
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields[0]))
	}
	entry.Info(msg)
}

func (l *AppLogger) Warn(msg string, fields ...LogFields) {
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields[0]))
	}
	entry.Warn(msg)
}

func (l *AppLogger) Error(msg string, err error, fields ...LogFields) {
	entry := l.entry
	if err != nil {
		entry = entry.WithError(err)
	}
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields[0]))
	}
	entry.Error(msg)
}

func (l *AppLogger) Fatal(msg string, err error, fields ...LogFields) {
	entry := l.entry
	if err != nil {
		entry = entry.WithError(err)
	}
	if len(fields) > 0 {
		entry = entry.WithFields(logrus.Fields(fields[0]))
	}
	entry.Fatal(msg)
}

func (l *AppLogger) WithFields(fields LogFields) Logger {
	return &AppLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

// WithContext returns a logger carrying request-scoped identifiers.
func (l *AppLogger) WithContext(ctx context.Context) Logger {
	entry := l.entry

	if requestID := GetRequestID(ctx); requestID != "" {
		entry = entry.WithField("request_id", requestID)
	}

	if userID := GetUserID(ctx); userID != 0 {
		entry = entry.WithField("user_id", userID)
	}

	return &AppLogger{entry: entry}
}

// LogRequest logs an HTTP request at a level based on the response status.
func LogRequest(c *gin.Context, start time.Time) {
	logger := GetLogger().WithFields(LogFields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"ip":         c.ClientIP(),
		"user_agent": c.Request.UserAgent(),
		"status":     c.Writer.Status(),
		"latency":    time.Since(start).String(),
	})

	if requestID := c.GetHeader("X-Request-ID"); requestID != "" {
		logger = logger.WithFields(LogFields{"request_id": requestID})
	}

	message := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)

	status := c.Writer.Status()
	if status >= 500 {
		logger.Error(message, nil)
	} else if status >= 400 {
		logger.Warn(message)
	} else {
		logger.Info(message)
	}
}

// Context helper functions

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val := ctx.Value(requestIDKey); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func GetUserID(ctx context.Context) uint {
	if ctx == nil {
		return 0
	}
	if val := ctx.Value(userIDKey); val != nil {
		if id, ok := val.(uint); ok {
			return id
		}
	}
	return 0
}

// LogGitHubCall logs outbound GitHub API calls and their outcome.
func LogGitHubCall(operation string, installationID int64, duration time.Duration, err error, fields ...LogFields) {
	logger := GetLogger()
	logFields := LogFields{
		"operation":       operation,
		"installation_id": installationID,
		"duration":        duration.String(),
	}

	if len(fields) > 0 {
		for k, v := range fields[0] {
			logFields[k] = v
		}
	}

	message := fmt.Sprintf("GitHub %s", operation)

	if err != nil {
		logger.WithFields(logFields).Error(message, err)
	} else {
		logger.WithFields(logFields).Debug(message)
	}
}
