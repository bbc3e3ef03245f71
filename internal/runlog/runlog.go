// Package runlog writes leveled, timestamped run logs to a file and to the
// console at the same time.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is the severity of a log line.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger appends log lines to an optional file and an optional console
// writer. A nil *Logger discards everything.
type Logger struct {
	mu      sync.Mutex
	console io.Writer
	file    *os.File
	path    string
	now     func() time.Time
}

// New returns a Logger that writes only to console (which may be nil).
func New(console io.Writer) *Logger {
	return &Logger{console: console, now: time.Now}
}

// Discard returns a Logger that writes nowhere.
func Discard() *Logger {
	return New(nil)
}

// Open creates logDir and a log file named analysis_<YYYYMMDD_HHMMSS>.log
// inside it, and returns a Logger writing to both the file and console.
func Open(logDir string, console io.Writer) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	l := New(console)
	name := fmt.Sprintf("analysis_%s.log", l.now().Format("20060102_150405"))
	path := filepath.Join(logDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	l.file = f
	l.path = path
	l.Info("logging to %s", path)
	return l, nil
}

// Path returns the backing log file, or "" when there is none.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	l.file = nil
	return err
}

// Info logs an informational line.
func (l *Logger) Info(format string, args ...any) {
	l.append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	l.append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error logs an error.
func (l *Logger) Error(format string, args ...any) {
	l.append(LevelError, fmt.Sprintf(format, args...))
}

var levelColor = map[Level]*color.Color{
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed, color.Bold),
}

func (l *Logger) append(level Level, message string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	message = strings.TrimRight(message, "\n")
	ts := l.now().Format(time.RFC3339)

	if l.file != nil {
		_, _ = fmt.Fprintf(l.file, "%s %-5s %s\n", ts, string(level), message)
	}
	if l.console != nil {
		tag := levelColor[level].Sprintf("%-5s", string(level))
		_, _ = fmt.Fprintf(l.console, "%s %s\n", tag, message)
	}
}
