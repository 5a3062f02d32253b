package logger

import (
	"io"
)

type MultiLogger struct {
	outs []Logger
}

// NewMultiLogger fans every call out to all writers, e.g. console plus rolling file
func NewMultiLogger(writers ...Logger) Logger {
	return &MultiLogger{
		outs: writers,
	}
}

// DefaultWriter is the writer of the last logger, normally the file one
func (l *MultiLogger) DefaultWriter() io.Writer {
	if len(l.outs) > 0 {
		return l.outs[len(l.outs)-1].DefaultWriter()
	}
	return io.Discard
}

func (l *MultiLogger) SetLevel(lv LogLevel) {
	for _, o := range l.outs {
		o.SetLevel(lv)
	}
}

// Debug writelog with level 10
func (l *MultiLogger) Debug(msg string) {
	for _, o := range l.outs {
		o.Debug(msg)
	}
}

// Info writelog with level 20
func (l *MultiLogger) Info(msg string) {
	for _, o := range l.outs {
		o.Info(msg)
	}
}

// Warning writelog with level 30
func (l *MultiLogger) Warning(msg string) {
	for _, o := range l.outs {
		o.Warning(msg)
	}
}

// Error writelog with level 40
func (l *MultiLogger) Error(msg string) {
	for _, o := range l.outs {
		o.Error(msg)
	}
}

// System writelog with level 90
func (l *MultiLogger) System(msg string) {
	for _, o := range l.outs {
		o.System(msg)
	}
}
