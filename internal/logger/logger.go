package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"resistorserver/internal/config"
)

// Level names a log severity; each level is mirrored to its own file.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Levels lists every level in ascending severity.
var Levels = []Level{LevelInfo, LevelWarning, LevelError}

// FileName returns the log file backing the level.
func (l Level) FileName() string {
	return string(l) + ".log"
}

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	loggers map[Level]*log.Logger
	logDir  string
	mu      sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	l := &Logger{
		logDir:  config.LogDirectory,
		loggers: make(map[Level]*log.Logger, len(Levels)),
	}

	prefixes := map[Level]string{
		LevelInfo:    "ℹ️  INFO    ",
		LevelWarning: "⚠️  WARNING ",
		LevelError:   "❌ ERROR   ",
	}
	for _, level := range Levels {
		console := io.Writer(os.Stdout)
		if level == LevelError {
			console = os.Stderr
		}
		writer := io.MultiWriter(console, openLogFile(filepath.Join(l.logDir, level.FileName())))
		l.loggers[level] = log.New(writer, prefixes[level], log.Ldate|log.Ltime|log.Lshortfile)
	}
	return l
}

// NewDiscard returns a Logger that drops everything. Used in tests and tools.
func NewDiscard() *Logger {
	l := &Logger{loggers: make(map[Level]*log.Logger, len(Levels))}
	for _, level := range Levels {
		l.loggers[level] = log.New(io.Discard, "", 0)
	}
	return l
}

// openLogFile opens or creates a log file for appending.
func openLogFile(filename string) *os.File {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file %s: %v", filename, err)
	}
	return file
}

func (l *Logger) output(level Level, format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	// calldepth 3: output -> Info/Warning/Error -> caller
	l.loggers[level].Output(3, fmt.Sprintf(format, v...))
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.output(LevelInfo, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.output(LevelWarning, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.output(LevelError, format, v...)
}

// Dir returns the directory holding the log files.
func (l *Logger) Dir() string {
	return l.logDir
}

// CleanLogs truncates the log file of the given level.
func (l *Logger) CleanLogs(level Level) error {
	if l.logDir == "" {
		return nil
	}
	filePath := filepath.Join(l.logDir, level.FileName())
	if err := os.Truncate(filePath, 0); err != nil {
		l.Error("Error truncating %s: %v", filePath, err)
		return fmt.Errorf("failed to truncate %s: %w", level.FileName(), err)
	}

	l.Info("Log %s has been cleared.", level.FileName())
	return nil
}
