package logger

import (
	"log"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

type Route int

const (
	None Route = iota
	Sepa
	Fps
	Rtp
	Pix
	Upi
)

var routeCodeMap = map[int]Route{
	0: Sepa,
	1: Fps,
	2: Rtp,
	3: Pix,
	4: Upi,
}

var routePrefixes = map[Route]string{
	None: "",
	Sepa: "[SEPA] ",
	Fps:  "[FPS]  ",
	Rtp:  "[RTP]  ",
	Pix:  "[PIX]  ",
	Upi:  "[UPI]  ",
}

var colors = map[Route]color.Attribute{
	None: color.FgWhite,
	Sepa: color.FgHiBlue,
	Fps:  color.FgMagenta,
	Rtp:  color.FgHiGreen,
	Pix:  color.FgYellow,
	Upi:  color.FgRed,
}

// Logger is a simple interface for logging messages.
type Logger interface {
	// Info logs an informational message.
	Info(format string, args ...interface{})
	InfoWithRoute(routeCode int, format string, args ...interface{})

	// Error logs an error message.
	Error(format string, args ...interface{})
	ErrorWithRoute(routeCode int, format string, args ...interface{})

	// Debug logs a debug message.
	Debug(format string, args ...interface{})
	DebugWithRoute(routeCode int, format string, args ...interface{})

	// Notice logs a notice message.
	Notice(format string, args ...interface{})
	NoticeWithRoute(routeCode int, format string, args ...interface{})
}

// EmptyLogger is a simple implementation of the Logger interface that does nothing.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) InfoWithRoute(_ int, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) ErrorWithRoute(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) DebugWithRoute(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                 {}
func (l *EmptyLogger) NoticeWithRoute(_ int, _ string, _ ...interface{}) {}

// StdLogger is a standard implementation of the Logger interface that logs messages to the console.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

// formatMessage formats the log message with the appropriate log level, route prefix, and coloring if enabled.
func (l *StdLogger) formatMessage(level Level, route Route, format string) string {
	routePrefix := routePrefixes[route]
	if l.enableColoring {
		routePrefix = color.New(colors[route]).Sprint(routePrefix)
	}

	var levelStr string
	switch level {
	case DebugLevel:
		levelStr = "[DEBUG]  "
	case InfoLevel:
		levelStr = "[INFO]   "
	case NoticeLevel:
		levelStr = "[NOTICE] "
	case ErrorLevel:
		levelStr = "[ERROR]  "
	}

	return levelStr + routePrefix + format
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= InfoLevel {
		log.Printf(l.formatMessage(InfoLevel, None, format), args...)
	}
}

func (l *StdLogger) InfoWithRoute(routeCode int, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	route := routeCodeMap[routeCode]

	if l.level <= InfoLevel {
		log.Printf(l.formatMessage(InfoLevel, route, format), args...)
	}
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= ErrorLevel {
		log.Printf(l.formatMessage(ErrorLevel, None, format), args...)
	}
}

func (l *StdLogger) ErrorWithRoute(routeCode int, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	route := routeCodeMap[routeCode]

	if l.level <= ErrorLevel {
		log.Printf(l.formatMessage(ErrorLevel, route, format), args...)
	}
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= DebugLevel {
		log.Printf(l.formatMessage(DebugLevel, None, format), args...)
	}
}

func (l *StdLogger) DebugWithRoute(routeCode int, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	route := routeCodeMap[routeCode]

	if l.level <= DebugLevel {
		log.Printf(l.formatMessage(DebugLevel, route, format), args...)
	}
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level <= NoticeLevel {
		log.Printf(l.formatMessage(NoticeLevel, None, format), args...)
	}
}

func (l *StdLogger) NoticeWithRoute(routeCode int, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	route := routeCodeMap[routeCode]

	if l.level <= NoticeLevel {
		log.Printf(l.formatMessage(NoticeLevel, route, format), args...)
	}
}
