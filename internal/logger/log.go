package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
	NONE
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	case NONE:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

var levelColors = map[Level]string{
	DEBUG: "\033[36m", // Cyan
	INFO:  "\033[32m", // Green
	WARN:  "\033[33m", // Yellow
	ERROR: "\033[31m", // Red
	FATAL: "\033[31m",
}

const resetColor = "\033[0m"

// ParseLevel maps a level name to a Level, NONE when unrecognised.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return DEBUG
	case "info":
		return INFO
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return NONE
	}
}

// SystemLogLevel reads TICKVM_LOG_LEVEL, defaulting to WARN.
func SystemLogLevel() Level {
	if envLevel := os.Getenv("TICKVM_LOG_LEVEL"); envLevel != "" {
		return ParseLevel(envLevel)
	}
	return WARN
}

type Logger struct {
	level  Level
	color  bool
	logger *log.Logger
	mu     sync.Mutex
	prefix string
}

// NewLogger creates a new logger instance writing to stderr
func NewLogger(prefix string, level Level) *Logger {
	return &Logger{
		level:  level,
		color:  isTerminal(os.Stderr),
		prefix: prefix,
		logger: log.New(os.Stderr, fmt.Sprintf("[%s] ", prefix), log.LstdFlags|log.Lmicroseconds),
	}
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Level returns the minimum log level
func (l *Logger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetOutput sets the output destination
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.color = isTerminal(w)
	l.logger.SetOutput(w)
}

func (l *Logger) logf(level Level, format string, v ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	tag := level.String()
	if l.color {
		tag = levelColors[level] + tag + resetColor
	}
	l.logger.Printf("[%s] %s", tag, fmt.Sprintf(format, v...))
}

func (l *Logger) Debugf(format string, v ...any) { l.logf(DEBUG, format, v...) }
func (l *Logger) Infof(format string, v ...any)  { l.logf(INFO, format, v...) }
func (l *Logger) Warnf(format string, v ...any)  { l.logf(WARN, format, v...) }
func (l *Logger) Errorf(format string, v ...any) { l.logf(ERROR, format, v...) }
func (l *Logger) Fatalf(format string, v ...any) {
	l.logf(FATAL, format, v...)
	os.Exit(1)
}

// Global logger instance
var defaultLogger = NewLogger("tickvm", SystemLogLevel())

// Package-level convenience functions
func SetLevel(level Level)           { defaultLogger.SetLevel(level) }
func SetOutput(w io.Writer)          { defaultLogger.SetOutput(w) }
func Debugf(format string, v ...any) { defaultLogger.Debugf(format, v...) }
func Infof(format string, v ...any)  { defaultLogger.Infof(format, v...) }
func Warnf(format string, v ...any)  { defaultLogger.Warnf(format, v...) }
func Errorf(format string, v ...any) { defaultLogger.Errorf(format, v...) }
