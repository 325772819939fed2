package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	defaultLogger *slog.Logger
	once          sync.Once
)

// Options controls the handler built by Setup.
type Options struct {
	Debug  bool
	Format string // text or json
	Output io.Writer
}

// Init initializes the global logger based on environment variables.
// DEBUG=true enables debug level logging, LOG_FORMAT=json switches to JSON output.
func Init() {
	once.Do(func() {
		install(Options{
			Debug:  os.Getenv("DEBUG") == "true",
			Format: os.Getenv("LOG_FORMAT"),
		})
	})
}

// Setup initializes the global logger once. Later calls, and calls after
// Init, are no-ops.
func Setup(o Options) {
	once.Do(func() { install(o) })
}

func install(o Options) {
	defaultLogger = New(o)
	slog.SetDefault(defaultLogger)
}

// New builds a logger without touching the global one.
func New(o Options) *slog.Logger {
	level := slog.LevelInfo
	if o.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source file information if in debug mode
		AddSource: o.Debug,
	}

	out := o.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(o.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

func get() *slog.Logger {
	Init()
	return defaultLogger
}

// Debug logs at Debug level.
func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

// Info logs at Info level.
func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

// Warn logs at Warn level.
func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

// Error logs at Error level.
func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

// Fatal logs at Error level and then exits.
func Fatal(msg string, args ...any) {
	get().Error(msg, args...)
	os.Exit(1)
}

// With returns a new logger with the given attributes.
func With(args ...any) *slog.Logger {
	return get().With(args...)
}
