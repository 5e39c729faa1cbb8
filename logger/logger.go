package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
	CRITICAL
)

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DEBUG:
		return zerolog.DebugLevel
	case INFO:
		return zerolog.InfoLevel
	case WARNING:
		return zerolog.WarnLevel
	case ERROR:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

type Logger struct {
	mu sync.RWMutex
	zl zerolog.Logger
}

var instance *Logger
var once sync.Once

func GetInstance() *Logger {
	once.Do(func() {
		instance = &Logger{
			zl: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(zerolog.FatalLevel).
				With().Timestamp().Logger(),
		}
	})
	return instance
}

// Initialize points the logger at a rotating file under logDir, mirrored to
// stderr, and applies the configured level.
func (l *Logger) Initialize(logDir string, level LogLevel) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "app.log"),
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	}

	out := zerolog.MultiLevelWriter(zerolog.ConsoleWriter{Out: os.Stderr}, fileWriter)
	l.zl = zerolog.New(out).Level(level.zerolog()).With().Timestamp().Logger()

	return nil
}

func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = l.zl.Level(level.zerolog())
}

func (l *Logger) Debug(msg string)    { l.logAt(DEBUG, msg) }
func (l *Logger) Info(msg string)     { l.logAt(INFO, msg) }
func (l *Logger) Warn(msg string)     { l.logAt(WARNING, msg) }
func (l *Logger) Error(msg string)    { l.logAt(ERROR, msg) }
func (l *Logger) Critical(msg string) { l.logAt(CRITICAL, msg) }

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logAt(DEBUG, fmt.Sprintf(format, args...))
}
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logAt(INFO, fmt.Sprintf(format, args...))
}
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logAt(WARNING, fmt.Sprintf(format, args...))
}
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logAt(ERROR, fmt.Sprintf(format, args...))
}
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.logAt(CRITICAL, fmt.Sprintf(format, args...))
}

func (l *Logger) Fatal(msg string) {
	l.logAt(CRITICAL, msg)
	os.Exit(1)
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logAt(CRITICAL, fmt.Sprintf(format, args...))
	os.Exit(1)
}

func (l *Logger) logAt(level LogLevel, msg string) {
	l.mu.RLock()
	zl := l.zl
	l.mu.RUnlock()

	zl.WithLevel(level.zerolog()).Msg(msg)
}
