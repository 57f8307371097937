// Package log provides the structured logger shared by pyresolve components.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// Level represents log severity levels
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) charm() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	case InfoLevel:
		return charmlog.InfoLevel
	default:
		return charmlog.FatalLevel
	}
}

// Logger interface defines structured logging methods
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	SetLevel(level Level)
	SetJSONOutput(enabled bool)
	// With returns a child logger that prefixes every entry with component.
	With(component string) Logger
}

// LoggerConfig holds configuration for the logger
type LoggerConfig struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
	Prefix     string
}

// DefaultLogger is the default implementation of Logger
type DefaultLogger struct {
	mu    sync.Mutex
	inner *charmlog.Logger
}

var (
	defaultLogger *DefaultLogger
	once          sync.Once
)

// New creates a new logger with the given configuration
func New(cfg LoggerConfig) *DefaultLogger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	inner := charmlog.NewWithOptions(out, charmlog.Options{
		Prefix:          cfg.Prefix,
		Level:           cfg.Level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	if cfg.JSONOutput {
		inner.SetFormatter(charmlog.JSONFormatter)
	}

	return &DefaultLogger{inner: inner}
}

// Default returns the default logger instance
func Default() *DefaultLogger {
	once.Do(func() {
		defaultLogger = New(LoggerConfig{
			Level:  InfoLevel,
			Output: os.Stderr,
		})
	})
	return defaultLogger
}

// Discard returns a logger that drops every entry. Tests use it to keep
// output quiet.
func Discard() *DefaultLogger {
	return New(LoggerConfig{Level: ErrorLevel + 1, Output: io.Discard})
}

// normalize turns a leading unpaired argument ("msg", err, "k", v) into valid
// key/value pairs for the structured backend.
func normalize(args []interface{}) []interface{} {
	if len(args)%2 == 0 {
		return args
	}
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, "detail", fmt.Sprintf("%v", args[0]))
	return append(out, args[1:]...)
}

// Debug logs a debug message
func (l *DefaultLogger) Debug(msg string, args ...interface{}) {
	l.inner.Debug(msg, normalize(args)...)
}

// Info logs an info message
func (l *DefaultLogger) Info(msg string, args ...interface{}) {
	l.inner.Info(msg, normalize(args)...)
}

// Warn logs a warning message
func (l *DefaultLogger) Warn(msg string, args ...interface{}) {
	l.inner.Warn(msg, normalize(args)...)
}

// Error logs an error message
func (l *DefaultLogger) Error(msg string, args ...interface{}) {
	l.inner.Error(msg, normalize(args)...)
}

// SetLevel sets the minimum log level
func (l *DefaultLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.SetLevel(level.charm())
}

// SetJSONOutput enables or disables JSON output
func (l *DefaultLogger) SetJSONOutput(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if enabled {
		l.inner.SetFormatter(charmlog.JSONFormatter)
	} else {
		l.inner.SetFormatter(charmlog.TextFormatter)
	}
}

// With returns a child logger carrying the component as its prefix.
func (l *DefaultLogger) With(component string) Logger {
	return &DefaultLogger{inner: l.inner.WithPrefix(component)}
}

// ProgressSpinner provides a spinner for long-running operations such as
// package downloads triggered from the CLI.
type ProgressSpinner struct {
	mu      sync.Mutex
	message string
	frames  []string
	current int
	active  bool
	writer  io.Writer
	done    chan struct{}
}

// NewProgressSpinner creates a new progress spinner
func NewProgressSpinner(w io.Writer, message string) *ProgressSpinner {
	if w == nil {
		w = os.Stderr
	}
	return &ProgressSpinner{
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		writer:  w,
		done:    make(chan struct{}),
	}
}

// Start begins the spinner animation
func (p *ProgressSpinner) Start() {
	p.mu.Lock()
	if p.active {
		p.mu.Unlock()
		return
	}
	p.active = true
	p.mu.Unlock()

	go p.animate()
}

// Stop stops the spinner and clears its line.
func (p *ProgressSpinner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.active {
		return
	}
	p.active = false
	close(p.done)
	fmt.Fprint(p.writer, "\r\033[K")
}

func (p *ProgressSpinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.mu.Lock()
			if p.active {
				frame := p.frames[p.current%len(p.frames)]
				p.current++
				fmt.Fprintf(p.writer, "\r%s %s", frame, p.message)
			}
			p.mu.Unlock()
		case <-p.done:
			return
		}
	}
}
