// Package logging provides a tiny abstraction over slog so downstream code can
// depend on a minimal interface (Logger) while allowing hosts to plug any
// structured logger. It also offers a ConversationLogger with contextual
// helpers (session, turn) and domain specific helpers for model calls and
// reasoning decisions.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines the minimal logging interface used throughout guidedconv.
// Hosts may provide their own implementation or use the built-in adapters.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// LoggerConfig configures construction of a slog-backed Logger.
type LoggerConfig struct {
	Level     LogLevel
	Format    string // json or text
	Output    io.Writer
	AddSource bool
}

// DefaultLoggerConfig returns a baseline JSON info level configuration.
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{Level: LogLevelInfo, Format: "json", Output: os.Stdout}
}

// NewLogger builds a Logger from a config (or defaults if nil).
func NewLogger(cfg *LoggerConfig) Logger {
	if cfg == nil {
		cfg = DefaultLoggerConfig()
	}
	opts := &slog.HandlerOptions{Level: slogLevel(cfg.Level), AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(cfg.Output, opts)
	} else {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return NewSlogAdapter(slog.New(handler))
}

// NewSlogLogger creates a Logger with the specified level and format.
func NewSlogLogger(level LogLevel, format string, addSource bool) Logger {
	cfg := DefaultLoggerConfig()
	cfg.Level = level
	if format != "" {
		cfg.Format = format
	}
	cfg.AddSource = addSource
	return NewLogger(cfg)
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ConversationLogger decorates a slog.Logger with session context and domain
// helpers. It satisfies Logger, so it can be handed to the engine directly.
// Cheap to copy via With* methods.
type ConversationLogger struct {
	logger    *slog.Logger
	sessionID string
	turn      int
}

var _ Logger = (*ConversationLogger)(nil)

// NewConversationLogger wraps a slog.Logger for one conversation session.
func NewConversationLogger(logger *slog.Logger, sessionID string) *ConversationLogger {
	return &ConversationLogger{logger: logger, sessionID: sessionID}
}

// WithTurn returns a copy bound to the given turn number.
func (l *ConversationLogger) WithTurn(turn int) *ConversationLogger {
	nl := *l
	nl.turn = turn
	return &nl
}

func (l *ConversationLogger) attrs(extra ...slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(extra)+2)
	out = append(out, slog.String("session_id", l.sessionID), slog.Int("turn", l.turn))
	return append(out, extra...)
}

// Debug logs a debug message with session context.
func (l *ConversationLogger) Debug(msg string, args ...any) {
	l.logger.With("session_id", l.sessionID, "turn", l.turn).Debug(msg, args...)
}

// Info logs an informational message with session context.
func (l *ConversationLogger) Info(msg string, args ...any) {
	l.logger.With("session_id", l.sessionID, "turn", l.turn).Info(msg, args...)
}

// Warn logs a warning message with session context.
func (l *ConversationLogger) Warn(msg string, args ...any) {
	l.logger.With("session_id", l.sessionID, "turn", l.turn).Warn(msg, args...)
}

// Error logs an error message with session context.
func (l *ConversationLogger) Error(msg string, args ...any) {
	l.logger.With("session_id", l.sessionID, "turn", l.turn).Error(msg, args...)
}

// LogModelCall records completion call latency, token usage and success.
func (l *ConversationLogger) LogModelCall(modelName string, tokens int, dur time.Duration, err error) {
	attrs := l.attrs(
		slog.String("model", modelName),
		slog.Int("token_count", tokens),
		slog.Duration("duration", dur),
		slog.Bool("success", err == nil),
	)
	level := slog.LevelInfo
	msg := "Model call completed"
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		level = slog.LevelError
		msg = "Model call failed"
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

// LogDecision records which decision shape the reasoning step invoked.
func (l *ConversationLogger) LogDecision(decision string, accepted bool) {
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "Reasoning decision",
		l.attrs(slog.String("decision", decision), slog.Bool("accepted", accepted))...)
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}
