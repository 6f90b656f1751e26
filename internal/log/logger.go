// SPDX-License-Identifier: MIT
//
// Package log is a small leveled logger writing to stderr. Everything the
// visualizer reports outside the spectrum itself (startup progress, stream
// errors, shutdown) goes through here so stdout stays reserved for frames.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// Level defines the severity of a log message.
type Level uint32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// String returns the upper-case name of the level.
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
	case LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive name to a Level.
// Returns LevelInfo and false if the name is not recognized.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	case "FATAL":
		return LevelFatal, true
	default:
		return LevelInfo, false
	}
}

var (
	currentLevel atomic.Uint32
	logger       = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

	// exit is swapped by tests so Fatalf can be observed.
	exit = os.Exit
)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the global level atomically.
func SetLevel(level Level) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the global level.
func GetLevel() Level {
	return Level(currentLevel.Load())
}

// SetOutput redirects log output. Passing nil restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)
}

func enabled(level Level) bool {
	return level >= GetLevel()
}

func output(level Level, msg string) {
	// Two spaces after the shorter tags keep messages column aligned.
	pad := " "
	if len(level.String()) == 4 {
		pad = "  "
	}
	logger.Print("[" + level.String() + "]" + pad + msg)
}

// Debugf logs a formatted debug message.
func Debugf(format string, v ...any) {
	if enabled(LevelDebug) {
		output(LevelDebug, fmt.Sprintf(format, v...))
	}
}

// Infof logs a formatted info message.
func Infof(format string, v ...any) {
	if enabled(LevelInfo) {
		output(LevelInfo, fmt.Sprintf(format, v...))
	}
}

// Warnf logs a formatted warning.
func Warnf(format string, v ...any) {
	if enabled(LevelWarn) {
		output(LevelWarn, fmt.Sprintf(format, v...))
	}
}

// Errorf logs a formatted error.
func Errorf(format string, v ...any) {
	if enabled(LevelError) {
		output(LevelError, fmt.Sprintf(format, v...))
	}
}

// Fatalf always logs, then exits with status 1.
func Fatalf(format string, v ...any) {
	output(LevelFatal, fmt.Sprintf(format, v...))
	exit(1)
}

func Debug(v ...any) {
	if enabled(LevelDebug) {
		output(LevelDebug, fmt.Sprint(v...))
	}
}

func Info(v ...any) {
	if enabled(LevelInfo) {
		output(LevelInfo, fmt.Sprint(v...))
	}
}

func Warn(v ...any) {
	if enabled(LevelWarn) {
		output(LevelWarn, fmt.Sprint(v...))
	}
}

func Error(v ...any) {
	if enabled(LevelError) {
		output(LevelError, fmt.Sprint(v...))
	}
}

func Fatal(v ...any) {
	output(LevelFatal, fmt.Sprint(v...))
	exit(1)
}
