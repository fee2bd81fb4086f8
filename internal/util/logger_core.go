package util

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field is a key-value pair for structured logging
type Field = zapcore.Field

// Field constructors
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Duration = zap.Duration
	Err      = zap.Error
	Any      = zap.Any
)

// LogFormat represents the output format
type LogFormat string

const (
	FormatConsole LogFormat = "console"
	FormatJSON    LogFormat = "json"
)

// LoggerConfig controls where and how log entries are written.
type LoggerConfig struct {
	Level   string    // debug, info, warn, error
	Format  LogFormat // console or json
	File    string    // optional log file, appended to
	Console bool      // write to stderr
}

// Logger provides structured logging on top of zap
type Logger struct {
	z *zap.Logger
	s *zap.SugaredLogger
}

// NewLogger creates a logger writing to stderr and/or the configured file
func NewLogger(cfg LoggerConfig) (*Logger, error) {
	level := parseLogLevel(cfg.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      zapcore.OmitKey,
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05"),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case FormatJSON:
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case FormatConsole, "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	var sinks []zapcore.WriteSyncer
	if cfg.Console {
		sinks = append(sinks, zapcore.Lock(os.Stderr))
	}
	if cfg.File != "" {
		file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		sinks = append(sinks, zapcore.AddSync(file))
	}
	if len(sinks) == 0 {
		return NewNopLogger(), nil
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)
	z := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
	return &Logger{z: z, s: z.Sugar()}, nil
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	z := zap.NewNop()
	return &Logger{z: z, s: z.Sugar()}
}

// parseLogLevel parses a log level string
func parseLogLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.z.Debug(msg, fields...) }

func (l *Logger) Debugf(format string, args ...interface{}) { l.s.Debugf(format, args...) }

func (l *Logger) Info(msg string, fields ...Field) { l.z.Info(msg, fields...) }

func (l *Logger) Infof(format string, args ...interface{}) { l.s.Infof(format, args...) }

func (l *Logger) Warn(msg string, fields ...Field) { l.z.Warn(msg, fields...) }

func (l *Logger) Warnf(format string, args ...interface{}) { l.s.Warnf(format, args...) }

func (l *Logger) Error(msg string, fields ...Field) { l.z.Error(msg, fields...) }

func (l *Logger) Errorf(format string, args ...interface{}) { l.s.Errorf(format, args...) }

// With returns a new logger with additional fields
func (l *Logger) With(fields ...Field) *Logger {
	z := l.z.With(fields...)
	return &Logger{z: z, s: z.Sugar()}
}

// Named returns a child logger with the given name
func (l *Logger) Named(name string) *Logger {
	z := l.z.Named(name)
	return &Logger{z: z, s: z.Sugar()}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.z.Sync()
}
