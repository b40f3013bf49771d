// Package logging provides the manager's structured, leveled logger:
// rotating file output via lumberjack, colorized console rendering when
// attached to a terminal, and per-operation correlation ids.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Level is a log severity; lower values are more verbose.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel converts a config string to a Level, defaulting to Info.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
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

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

// Config controls where a Logger writes and how it renders.
type Config struct {
	Level Level

	// File rotation; FilePath == "" disables file output.
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool

	// Color controls console colorization: "auto" colorizes only when
	// stdout is a TTY, "always" forces it, "never" disables it. An
	// unset NO_COLOR-respecting default of "auto" is used for "".
	Color string
}

// Logger writes leveled, structured log lines to the console and,
// optionally, a rotating file.
type Logger struct {
	level      Level
	out        *log.Logger
	fileLogger *lumberjack.Logger
	colorize   bool
	mu         sync.Mutex
}

// New builds a Logger from cfg. The console stream is always os.Stdout;
// a non-empty cfg.FilePath additionally fans output out to a rotating
// file via lumberjack.
func New(cfg Config) *Logger {
	writers := []io.Writer{os.Stdout}

	var fileLogger *lumberjack.Logger
	if cfg.FilePath != "" {
		fileLogger = &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		writers = append(writers, fileLogger)
	}

	return &Logger{
		level:      cfg.Level,
		out:        log.New(io.MultiWriter(writers...), "", 0),
		fileLogger: fileLogger,
		colorize:   colorEnabled(cfg.Color),
	}
}

func colorEnabled(mode string) bool {
	if mode == "never" {
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if mode == "always" {
		return true
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// Field is one structured key/value pair attached to a log line.
type Field struct {
	Key   string
	Value any
}

// F builds a Field; a small convenience for call sites.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

func levelColor(l Level) *color.Color {
	switch l {
	case LevelDebug:
		return color.New(color.FgCyan)
	case LevelWarn:
		return color.New(color.FgYellow)
	case LevelError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgGreen)
	}
}

func (lg *Logger) log(level Level, msg string, fields []Field) {
	if level < lg.level {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s ", time.Now().Format("2006-01-02 15:04:05"))

	levelTag := fmt.Sprintf("[%s]", level)
	if lg.colorize {
		levelTag = levelColor(level).Sprint(levelTag)
	}
	b.WriteString(levelTag)
	b.WriteByte(' ')
	b.WriteString(msg)

	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}

	lg.mu.Lock()
	defer lg.mu.Unlock()
	lg.out.Println(b.String())
}

func (lg *Logger) Debug(msg string, fields ...Field) { lg.log(LevelDebug, msg, fields) }
func (lg *Logger) Info(msg string, fields ...Field)  { lg.log(LevelInfo, msg, fields) }
func (lg *Logger) Warn(msg string, fields ...Field)  { lg.log(LevelWarn, msg, fields) }
func (lg *Logger) Error(msg string, fields ...Field) { lg.log(LevelError, msg, fields) }

// Close flushes and closes the rotating file writer, if one is active.
func (lg *Logger) Close() error {
	if lg.fileLogger != nil {
		return lg.fileLogger.Close()
	}
	return nil
}

// NewOperationID mints a correlation id for one controller operation
// (e.g. a deploy or install), so every log line it emits can be tied
// back together regardless of interleaving with other operations.
func NewOperationID() string {
	return uuid.New().String()
}
