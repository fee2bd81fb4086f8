package util

import (
	"sync"
)

var (
	globalLogger = NewNopLogger()
	loggerOnce   sync.Once
	loggerMu     sync.RWMutex
)

// InitLogger initializes the global logger. Only the first call takes effect.
func InitLogger(cfg LoggerConfig) error {
	var initErr error
	loggerOnce.Do(func() {
		logger, err := NewLogger(cfg)
		if err != nil {
			initErr = err
			return
		}
		SetLogger(logger)
	})
	return initErr
}

// SetLogger replaces the global logger
func SetLogger(logger *Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	globalLogger = logger
}

// L returns the global logger
func L() *Logger {
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return globalLogger
}

// Named returns a named child of the global logger
func Named(name string) *Logger {
	return L().Named(name)
}

// LogInfo convenience functions for logging
func LogInfo(msg string, fields ...Field) {
	L().Info(msg, fields...)
}

func LogInfof(format string, args ...interface{}) {
	L().Infof(format, args...)
}

func LogDebug(msg string, fields ...Field) {
	L().Debug(msg, fields...)
}

func LogDebugf(format string, args ...interface{}) {
	L().Debugf(format, args...)
}

func LogWarn(msg string, fields ...Field) {
	L().Warn(msg, fields...)
}

func LogWarnf(format string, args ...interface{}) {
	L().Warnf(format, args...)
}

func LogError(msg string, fields ...Field) {
	L().Error(msg, fields...)
}

func LogErrorf(format string, args ...interface{}) {
	L().Errorf(format, args...)
}
