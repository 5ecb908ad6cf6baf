package log

import (
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

const VERSION = "v0.1.0"

var globalLogLevel uint32 = 0

var std = logrus.New()

func init() {
	std.SetLevel(logrus.TraceLevel)
	std.Formatter = &logrus.TextFormatter{
		FullTimestamp: true,
	}
}

// SetGlobalLogLevel sets verbosity.
// 0-2 are info verbosity, 4 enables debug and 5 enables trace.
func SetGlobalLogLevel(level uint) {
	atomic.StoreUint32(&globalLogLevel, uint32(level))
}

func GlobalLogLevel() uint {
	return uint(atomic.LoadUint32(&globalLogLevel))
}

// Logger attaches fields to every line it writes.
type Logger struct {
	Fields map[string]interface{}
}

func NewLogger() *Logger {
	return &Logger{
		Fields: map[string]interface{}{
			"version": VERSION,
		},
	}
}

func (l *Logger) entry() *logrus.Entry {
	return std.WithFields(logrus.Fields(l.Fields))
}

func (l *Logger) infoLevel(level uint, message string) {
	if GlobalLogLevel() < level {
		return
	}
	l.entry().Info(message)
}

func (l *Logger) Info0(message string) { l.infoLevel(0, message) }
func (l *Logger) Info1(message string) { l.infoLevel(1, message) }

func (l *Logger) Infof0(format string, args ...interface{}) {
	l.infoLevel(0, fmt.Sprintf(format, args...))
}

func (l *Logger) Infof1(format string, args ...interface{}) {
	l.infoLevel(1, fmt.Sprintf(format, args...))
}

func (l *Logger) Warn(message string) {
	l.entry().Warn(message)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.entry().Warnf(format, args...)
}

func (l *Logger) Error(message string) {
	l.entry().Error(message)
}

// DebugLazy builds the message only when debug verbosity is on.
func (l *Logger) DebugLazy(build func() string) {
	if GlobalLogLevel() > 3 {
		l.entry().Debug(build())
	}
}

func (l *Logger) TraceLazy(build func() string) {
	if GlobalLogLevel() > 4 {
		l.entry().Trace(build())
	}
}

func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.entry().Fatalf(format, args...)
}

func (l *Logger) Panicf(format string, args ...interface{}) {
	l.entry().Panicf(format, args...)
}

// Package level helpers write with the default fields.
var defaultLogger = NewLogger()

func Info0(message string)                      { defaultLogger.Info0(message) }
func Infof0(format string, args ...interface{}) { defaultLogger.Infof0(format, args...) }
func Warn(message string)                       { defaultLogger.Warn(message) }
func Warnf(format string, args ...interface{})  { defaultLogger.Warnf(format, args...) }
func Fatalf(format string, args ...interface{}) { defaultLogger.Fatalf(format, args...) }
func Panicf(format string, args ...interface{}) { defaultLogger.Panicf(format, args...) }

func InfoMap(tags map[string]interface{}, message string) {
	(&Logger{Fields: tags}).Info0(message)
}

func DebugMap(tags map[string]interface{}, message string) {
	(&Logger{Fields: tags}).DebugLazy(func() string { return message })
}
