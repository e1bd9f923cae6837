// Package logger is a small leveled logger that writes to stdout and a
// rotated file, and fans every entry out to subscriber channels so the
// WebSocket hub can stream the log live to the browser.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel names a message severity.
type LogLevel string

const (
	Debug LogLevel = "DEBUG"
	Info  LogLevel = "INFO"
	Warn  LogLevel = "WARN"
	Error LogLevel = "ERROR"
)

// LogEntry is the wire form of one log line, as pushed to subscribers.
type LogEntry struct {
	Timestamp string   `json:"timestamp"`
	Level     LogLevel `json:"level"`
	Message   string   `json:"message"`
}

var (
	// minLevel filters output; messages below it are dropped entirely,
	// including for subscribers.
	minLevel LogLevel = Info

	mu         sync.Mutex
	listeners  []chan LogEntry
	fileLogger *lumberjack.Logger
)

func init() {
	listeners = make([]chan LogEntry, 0)
	// Stdout only until Init wires the log file; no stdlib prefix, the
	// Log function emits its own timestamp and level.
	log.SetOutput(os.Stdout)
	log.SetFlags(0)
}

// levelPriority orders levels; unknown levels sort with Info.
func levelPriority(level LogLevel) int {
	switch level {
	case Debug:
		return 0
	case Info:
		return 1
	case Warn:
		return 2
	case Error:
		return 3
	default:
		return 1
	}
}

// SetLevel sets the minimum level from its lowercase config name. Anything
// unrecognized falls back to info.
func SetLevel(level string) {
	switch level {
	case "debug":
		minLevel = Debug
	case "info":
		minLevel = Info
	case "warn":
		minLevel = Warn
	case "error":
		minLevel = Error
	default:
		minLevel = Info
	}
	log.Printf("Log level set to: %s", minLevel)
}

// Init points the logger at its log directory and starts writing to both
// stdout and a rotated snoozarr.log. Call once, after config loads.
func Init(logDir string) {
	// Owner-only: the log can echo notification URLs from config
	if err := os.MkdirAll(logDir, 0700); err != nil {
		log.Printf("Failed to create log directory: %v", err)
		return
	}

	fileLogger = &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "snoozarr.log"),
		MaxSize:    50, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	log.SetOutput(io.MultiWriter(os.Stdout, fileLogger))
}

// GetLogDir returns the directory log files are written to, or "" before Init.
func GetLogDir() string {
	if fileLogger != nil {
		return filepath.Dir(fileLogger.Filename)
	}
	return ""
}

// Subscribe registers a new log stream and returns its channel. The channel
// is buffered; a subscriber that stops draining loses entries rather than
// blocking the logger.
func Subscribe() chan LogEntry {
	mu.Lock()
	defer mu.Unlock()
	ch := make(chan LogEntry, 100)
	listeners = append(listeners, ch)
	return ch
}

// Unsubscribe removes and closes a stream returned by Subscribe.
func Unsubscribe(ch chan LogEntry) {
	mu.Lock()
	defer mu.Unlock()
	for i, l := range listeners {
		if l == ch {
			listeners = append(listeners[:i], listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

func broadcast(entry LogEntry) {
	mu.Lock()
	defer mu.Unlock()
	for _, ch := range listeners {
		select {
		case ch <- entry:
		default:
			// full subscriber, drop
		}
	}
}

// Log formats and emits one message at the given level. Output goes to
// stdout, the log file, and every subscriber.
func Log(level LogLevel, format string, v ...interface{}) {
	if levelPriority(level) < levelPriority(minLevel) {
		return
	}

	msg := fmt.Sprintf(format, v...)
	timestamp := time.Now().Format(time.RFC3339)

	log.Printf("%s [%s] %s", timestamp, level, msg)

	broadcast(LogEntry{
		Timestamp: timestamp,
		Level:     level,
		Message:   msg,
	})
}

func Debugf(format string, v ...interface{}) { Log(Debug, format, v...) }

func Infof(format string, v ...interface{}) { Log(Info, format, v...) }

func Warnf(format string, v ...interface{}) { Log(Warn, format, v...) }

func Errorf(format string, v ...interface{}) { Log(Error, format, v...) }
