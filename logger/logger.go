package logger

import (
	"io"
	"strings"
)

type LogLevel byte

const (
	LogDebug   LogLevel = 10
	LogInfo    LogLevel = 20
	LogWarning LogLevel = 30
	LogError   LogLevel = 40
	LogSystem  LogLevel = 90
)

var levelTags = map[LogLevel]string{
	LogDebug:   "[DEBUG] ",
	LogInfo:    "[INFO] ",
	LogWarning: "[WARN] ",
	LogError:   "[ERROR] ",
	LogSystem:  "[SYSTEM] ",
}

// ParseLevel 配置文件中的日志等级，无法识别时返回 LogInfo
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogDebug
	case "warn", "warning":
		return LogWarning
	case "error":
		return LogError
	case "system":
		return LogSystem
	default:
		return LogInfo
	}
}

// Logger 日志接口
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
	Error(msg string)
	System(msg string)
	DefaultWriter() io.Writer
	SetLevel(l LogLevel)
}

// NilLogger 空日志
type NilLogger struct{}

// Debug Debug
func (l *NilLogger) Debug(msg string) {}

// Info Info
func (l *NilLogger) Info(msg string) {}

// Warning Warning
func (l *NilLogger) Warning(msg string) {}

// Error Error
func (l *NilLogger) Error(msg string) {}

// System System
func (l *NilLogger) System(msg string) {}

// DefaultWriter 返回日志Writer
func (l *NilLogger) DefaultWriter() io.Writer { return io.Discard }
func (l *NilLogger) SetLevel(LogLevel)        {}

// StdLogger writes leveled lines to one writer
type StdLogger struct {
	out      io.Writer
	logLevel LogLevel
}

func (l *StdLogger) write(lv LogLevel, msg string) {
	if lv < l.logLevel {
		return
	}
	l.out.Write([]byte(levelTags[lv] + msg))
}

// Debug Debug
func (l *StdLogger) Debug(msg string) { l.write(LogDebug, msg) }

// Info Info
func (l *StdLogger) Info(msg string) { l.write(LogInfo, msg) }

// Warning Warning
func (l *StdLogger) Warning(msg string) { l.write(LogWarning, msg) }

// Error Error
func (l *StdLogger) Error(msg string) { l.write(LogError, msg) }

// System System
func (l *StdLogger) System(msg string) { l.write(LogSystem, msg) }

// DefaultWriter 返回日志Writer
func (l *StdLogger) DefaultWriter() io.Writer {
	return l.out
}

func (l *StdLogger) SetLevel(ll LogLevel) {
	l.logLevel = ll
}

// NewLogger init logger
//
// l: 日志等级，低于该等级的日志被丢弃
//
// opts: 文件输出参数，未设置文件名时仅输出到控制台
func NewLogger(l LogLevel, opts ...Options) Logger {
	return &StdLogger{
		out:      NewWriter(opts...),
		logLevel: l,
	}
}

// NewWriterLogger wraps an existing writer, mainly for tests
func NewWriterLogger(w io.Writer, l LogLevel) Logger {
	return &StdLogger{
		out:      w,
		logLevel: l,
	}
}

// NewConsoleLogger 返回一个纯控制台日志输出器
func NewConsoleLogger() Logger {
	return NewConsoleLoggerWithLevel(LogDebug)
}

func NewConsoleLoggerWithLevel(l LogLevel) Logger {
	return &StdLogger{
		out:      NewConsoleWriter(),
		logLevel: l,
	}
}

func NewNilLogger() Logger {
	return &NilLogger{}
}
