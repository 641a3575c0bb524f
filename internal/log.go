package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var logLevels = map[string]int{
	"debug": 0,
	"info":  1,
	"warn":  2,
	"error": 3,
}

// Logger is a leveled wrapper around the standard library logger
type Logger struct {
	mu     sync.Mutex
	logger *log.Logger
	level  int
}

// NewLogger creates a logger writing to w; unknown levels fall back to info
func NewLogger(w io.Writer, level string) *Logger {
	lvl, ok := logLevels[strings.ToLower(level)]
	if !ok {
		lvl = logLevels["info"]
	}
	return &Logger{
		logger: log.New(w, "", log.LstdFlags|log.Lmicroseconds),
		level:  lvl,
	}
}

func (l *Logger) enabled(level string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return logLevels[level] >= l.level
}

func (l *Logger) logf(level, format string, args ...any) {
	if !l.enabled(level) {
		return
	}
	l.logger.Printf("[%s] "+format, append([]any{strings.ToUpper(level)}, args...)...)
}

// SetLevel changes the minimum level that gets written
func (l *Logger) SetLevel(level string) {
	if lvl, ok := logLevels[strings.ToLower(level)]; ok {
		l.mu.Lock()
		l.level = lvl
		l.mu.Unlock()
	}
}

// SetOutput redirects the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.logger.SetOutput(w)
}

// Writer exposes the underlying writer, e.g. for gin's default writers
func (l *Logger) Writer() io.Writer {
	return l.logger.Writer()
}

func (l *Logger) Debugf(format string, args ...any) { l.logf("debug", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf("info", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf("warn", format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf("error", format, args...) }

var defaultLogger = NewLogger(os.Stderr, "warn")

// DefaultLogger returns the process-wide logger
func DefaultLogger() *Logger {
	return defaultLogger
}

var logFileOnce sync.Once

// InitLogging applies the verbosity from config and, when toFile is set,
// redirects logs to tldl.log in the cache dir. MCP over stdio needs the latter
// since stdout carries the protocol.
func InitLogging(config *Config, toFile bool) {
	if config.Verbose {
		defaultLogger.SetLevel("debug")
	}
	if !toFile {
		return
	}
	if !config.MCPLogEnabled {
		defaultLogger.SetOutput(io.Discard)
		return
	}

	logFileOnce.Do(func() {
		if err := EnsureDirs(config.CacheDir); err != nil {
			defaultLogger.SetOutput(io.Discard)
			return
		}
		logPath := filepath.Join(config.CacheDir, "tldl.log")
		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			defaultLogger.SetOutput(io.Discard)
			return
		}
		defaultLogger.SetOutput(logFile)
	})
}

func LogDebug(format string, args ...any) { defaultLogger.Debugf(format, args...) }
func LogInfo(format string, args ...any)  { defaultLogger.Infof(format, args...) }
func LogWarn(format string, args ...any)  { defaultLogger.Warnf(format, args...) }
func LogError(format string, args ...any) { defaultLogger.Errorf(format, args...) }
