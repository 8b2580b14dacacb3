package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is a log severity. Messages below the current level are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var (
	mu           sync.RWMutex
	currentLevel = LevelInfo
	logger       = newBackend()
	outputFile   *os.File
)

func newBackend() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.DebugLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SetLevel sets the minimum level from its name (DEBUG, INFO, WARN, ERROR).
// Unknown names leave the level unchanged.
func SetLevel(level string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToUpper(level) {
	case "DEBUG":
		currentLevel = LevelDebug
	case "INFO":
		currentLevel = LevelInfo
	case "WARN":
		currentLevel = LevelWarn
	case "ERROR":
		currentLevel = LevelError
	}
}

// SetFormat selects the line format: "text" (default) or "json".
func SetFormat(format string) {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
}

// SetOutput redirects log output to "stdout", "stderr" or a file path
// (opened in append mode).
func SetOutput(output string) error {
	var w io.Writer
	var f *os.File

	switch strings.ToLower(output) {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		var err error
		f, err = os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log output %s: %w", output, err)
		}
		w = f
	}

	mu.Lock()
	defer mu.Unlock()

	if outputFile != nil {
		_ = outputFile.Close()
	}
	outputFile = f
	logger.SetOutput(w)
	return nil
}

// SetWriter is used by tests to capture output.
func SetWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(w)
}

func log(level Level, format string, v ...any) {
	mu.RLock()
	defer mu.RUnlock()

	if level < currentLevel {
		return
	}

	message := fmt.Sprintf(format, v...)
	switch level {
	case LevelDebug:
		logger.Debug(message)
	case LevelInfo:
		logger.Info(message)
	case LevelWarn:
		logger.Warn(message)
	default:
		logger.Error(message)
	}
}

// Debug logs at DEBUG level.
func Debug(format string, v ...any) {
	log(LevelDebug, format, v...)
}

// Info logs at INFO level.
func Info(format string, v ...any) {
	log(LevelInfo, format, v...)
}

// Warn logs at WARN level.
func Warn(format string, v ...any) {
	log(LevelWarn, format, v...)
}

// Error logs at ERROR level.
func Error(format string, v ...any) {
	log(LevelError, format, v...)
}
