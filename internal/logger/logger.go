package logger

import (
	"sync"
)

// Log levels used across the application.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

var (
	// globalLogger holds the singleton logger instance.
	globalLogger *Logger
	once         sync.Once
)

// Get returns a singleton console logger configured with the provided level.
// The first call initializes the logger; subsequent calls ignore the level
// and return the already initialized instance.
func Get(level string) *Logger {
	once.Do(func() {
		globalLogger = New(level, FormatConsole)
	})
	return globalLogger
}

// Init replaces the singleton with a logger built from level and format.
// main calls it once configuration is loaded.
func Init(level, format string) *Logger {
	l := New(level, format)
	once.Do(func() {})
	globalLogger = l
	return l
}
