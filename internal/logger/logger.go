// Package logger provides leveled logging for the scanner and its clients.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel: "[DEBUG]",
	InfoLevel:  "[INFO]",
	WarnLevel:  "[WARN]",
	ErrorLevel: "[ERROR]",
}

var (
	minLevel = InfoLevel
	std      = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init configures the package logger with the given level and format.
// The "text" format adds caller information for local debugging.
func Init(level string, format string) {
	minLevel = ParseLevel(level)
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

func logf(level Level, format string, args ...any) {
	if level < minLevel {
		return
	}
	_ = std.Output(3, fmt.Sprintf(levelTags[level]+" "+format, args...))
}

func Debug(format string, args ...any) { logf(DebugLevel, format, args...) }
func Info(format string, args ...any)  { logf(InfoLevel, format, args...) }
func Warn(format string, args ...any)  { logf(WarnLevel, format, args...) }
func Error(format string, args ...any) { logf(ErrorLevel, format, args...) }

// Fatal logs at error level and terminates the process.
func Fatal(format string, args ...any) {
	_ = std.Output(2, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
