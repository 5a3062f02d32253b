package logger

import (
	"strings"

	"github.com/xyzj/cherrybot/compressor"
	"github.com/xyzj/cherrybot/pathtool"
)

const (
	// ShortTimeFormat 无日期的日志内容时间戳格式
	ShortTimeFormat = "15:04:05.000 "
	// LongTimeFormat 含日期的日志内容时间戳格式
	LongTimeFormat = "2006-01-02 15:04:05.000 "

	fileBackupFormat = "20060102150405"
	minFileSize      = 1 << 20
)

var lineEnd = []byte{10}

// writerOpt 文件输出参数
type writerOpt struct {
	// file 日志文件名，为空时仅输出到控制台
	file string
	// dir 日志存放目录
	dir string
	// timeformat 每行日志的时间戳格式
	timeformat string
	// maxsize 单个日志文件最大大小，超过后滚动，0 不滚动
	maxsize int64
	// maxdays 旧日志最大保留天数，0 不限
	maxdays int
	// maxbackups 旧日志最大保留个数，0 不限
	maxbackups int
	// compress 旧日志压缩算法
	compress compressor.Algorithm
}

func defaultWriterOpts() *writerOpt {
	return &writerOpt{
		dir:        pathtool.GetExecDir(),
		timeformat: LongTimeFormat,
		maxsize:    10 << 20,
	}
}

type Options func(opt *writerOpt)

func WithFilename(name string) Options {
	return func(o *writerOpt) {
		o.file = name
	}
}

func WithFileDir(name string) Options {
	if name == "" || name == "." {
		name = pathtool.GetExecDir()
	}
	return func(o *writerOpt) {
		o.dir = name
	}
}

func WithFileDays(n int) Options {
	return func(o *writerOpt) {
		o.maxdays = max(n, 0)
	}
}

func WithMaxBackups(n int) Options {
	return func(o *writerOpt) {
		o.maxbackups = max(n, 0)
	}
}

// WithFileSize 0 关闭滚动，其他值最小 1MB
func WithFileSize(n int64) Options {
	return func(o *writerOpt) {
		if n <= 0 {
			o.maxsize = 0
			return
		}
		o.maxsize = max(n, minFileSize)
	}
}

func WithCompress(a compressor.Algorithm) Options {
	return func(o *writerOpt) {
		o.compress = a
	}
}

// WithTimeFormat 每行日志的时间戳格式，为空保持默认
func WithTimeFormat(f string) Options {
	return func(o *writerOpt) {
		if f == "" {
			return
		}
		if !strings.HasSuffix(f, " ") {
			f += " "
		}
		o.timeformat = f
	}
}
