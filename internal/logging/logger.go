package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger defines a minimal, printf-style logging contract.
//
// It intentionally stays small so every package can depend on it without
// pulling in transport or capability code.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

var (
	rootOnce sync.Once
	root     *componentLogger
)

// componentLogger writes timestamped lines to stderr and, when configured,
// to the shared debug log file.
type componentLogger struct {
	mu        sync.Mutex
	out       *log.Logger
	file      *os.File
	level     Level
	component string
}

func rootLogger() *componentLogger {
	rootOnce.Do(func() {
		l := &componentLogger{
			out:   log.New(os.Stderr, "", 0),
			level: LevelInfo,
		}
		if os.Getenv("SERVICEDESK_DEBUG") != "" {
			l.level = LevelDebug
		}
		if dir := os.Getenv("SERVICEDESK_LOG_DIR"); dir != "" {
			path := filepath.Join(dir, "servicedesk-debug.log")
			if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
				l.file = f
			}
		}
		root = l
	})
	return root
}

// NewComponentLogger returns the process logger scoped to a component name.
func NewComponentLogger(component string) Logger {
	base := rootLogger()
	return &componentLogger{
		out:       base.out,
		file:      base.file,
		level:     base.level,
		component: component,
	}
}

func (l *componentLogger) logf(level Level, format string, args ...any) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] [%s] %s",
		time.Now().Format("2006-01-02 15:04:05.000"), levelNames[level], l.component, msg)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Print(line)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

func (l *componentLogger) Debug(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.logf(LevelError, format, args...) }
