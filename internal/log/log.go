// Package log provides category-tagged logging for almostacms.
// Entries are written as single lines to a file (or any writer) and fanned out
// to pubsub subscribers so the editor can show a live log overlay.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/almostacms/almostacms/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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

// ParseLevel maps a config string to a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Category groups related log messages.
type Category string

const (
	CatConfig   Category = "config"   // Configuration loading/saving
	CatSections Category = "sections" // Manifest discovery, registry, section sessions
	CatForm     Category = "form"     // Form mutations
	CatSite     Category = "site"     // Document sources and persisters
	CatGitHub   Category = "github"   // GitHub contents API
	CatRelay    Category = "relay"    // OAuth relay HTTP service
	CatAuth     Category = "auth"     // Device flow and token storage
	CatDrafts   Category = "drafts"   // Local draft store
	CatWatcher  Category = "watcher"  // File watcher events
	CatUI       Category = "ui"       // UI component updates
	CatCache    Category = "cache"    // cache operations
)

// Logger provides structured logging.
type Logger struct {
	mu       sync.Mutex
	closer   io.Closer
	writer   io.Writer
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[string]
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Init opens path for appending and installs it as the global log sink.
// Returns a cleanup function to close the log file.
func Init(path string) (func(), error) {
	var initErr error
	once.Do(func() {
		var f *os.File
		f, initErr = os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: user-chosen debug log path
		if initErr == nil {
			defaultLogger = newLogger(f, f)
		}
	})
	if initErr != nil {
		return nil, initErr
	}
	if defaultLogger == nil {
		return nil, fmt.Errorf("logger initialization failed or already attempted")
	}
	return closeDefault, nil
}

// InitWithTeaLog uses tea.LogToFile so the TUI and the logger share one file.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	install(newLogger(f, f))
	return closeDefault, nil
}

// InitWriter installs w as the global sink. The relay uses this for stderr.
func InitWriter(w io.Writer, minLevel Level) func() {
	l := newLogger(w, nil)
	l.minLevel = minLevel
	install(l)
	return closeDefault
}

func newLogger(w io.Writer, c io.Closer) *Logger {
	return &Logger{
		closer:   c,
		writer:   w,
		enabled:  true,
		minLevel: LevelDebug,
		broker:   pubsub.NewBroker[string](),
	}
}

func install(l *Logger) {
	if defaultLogger != nil && defaultLogger.broker != nil {
		defaultLogger.broker.Close()
	}
	defaultLogger = l
}

func closeDefault() {
	if defaultLogger == nil {
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	if defaultLogger.closer != nil {
		_ = defaultLogger.closer.Close()
		defaultLogger.closer = nil
	}
	defaultLogger.writer = nil
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.enabled = enabled
		defaultLogger.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if defaultLogger != nil {
		defaultLogger.mu.Lock()
		defaultLogger.minLevel = level
		defaultLogger.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	write(LevelError, cat, msg, fields...)
}

// Format renders one entry. Exposed so tests and the overlay agree on layout.
//
//	2026-01-02T10:45:00 [WARN] [sections] unknown section id=blog
func Format(ts time.Time, level Level, cat Category, msg string, fields ...any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", ts.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	return b.String()
}

func write(level Level, cat Category, msg string, fields ...any) {
	l := defaultLogger
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel {
		return
	}

	entry := Format(time.Now(), level, cat, msg, fields...)
	if l.writer != nil {
		_, _ = io.WriteString(l.writer, entry)
	}
	if l.broker != nil {
		l.broker.Publish(pubsub.CreatedEvent, entry)
	}
}

// LogEvent is a pubsub event containing a log entry.
type LogEvent = pubsub.Event[string]

// LogListener wraps a continuous listener for log events.
type LogListener = pubsub.ContinuousListener[string]

// NewListener creates a new log event listener.
// The listener is automatically cleaned up when the context is cancelled.
func NewListener(ctx context.Context) *LogListener {
	if defaultLogger == nil || defaultLogger.broker == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, defaultLogger.broker)
}
