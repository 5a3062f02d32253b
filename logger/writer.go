package logger

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xyzj/cherrybot/compressor"
	"github.com/xyzj/cherrybot/loopfunc"
	"github.com/xyzj/cherrybot/pathtool"
)

type logData struct {
	t time.Time
	d []byte
}

func (l *logData) Bytes(timeformat string) []byte {
	xp := make([]byte, 0, len(timeformat)+len(l.d)+1)
	xp = l.t.AppendFormat(xp, timeformat)
	xp = append(xp, l.d...)
	if !bytes.HasSuffix(xp, lineEnd) {
		xp = append(xp, lineEnd...)
	}
	return xp
}

// Writer 日志写入器，文件模式下由独立的协程写入，并按大小滚动
type Writer struct {
	cnf         *writerOpt
	filename    string
	buff        *bufio.Writer
	fno         *os.File
	out         io.Writer
	chanWorker  chan *logData
	done        chan struct{}
	locker      sync.Mutex
	closeOnce   sync.Once
	closed      bool
	currentSize int64
}

func (w *Writer) openfile() error {
	var err error
	w.fno, err = os.OpenFile(w.filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o664)
	if err != nil {
		return err
	}
	info, err := w.fno.Stat()
	if err != nil {
		return err
	}
	w.currentSize = info.Size()
	w.buff.Reset(w.fno)
	return nil
}

// Close 关闭写入器，等待缓存中的日志全部落盘
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.locker.Lock()
		w.closed = true
		w.locker.Unlock()
		if w.chanWorker == nil {
			return
		}
		close(w.chanWorker)
		<-w.done
	})
	return nil
}

func (w *Writer) Write(b []byte) (n int, err error) {
	w.locker.Lock()
	defer w.locker.Unlock()
	if w.closed {
		return 0, nil
	}
	l := &logData{
		t: time.Now(),
		d: append([]byte{}, b...),
	}
	if w.chanWorker == nil {
		return w.out.Write(l.Bytes(w.cnf.timeformat))
	}
	w.chanWorker <- l
	return len(b), nil
}

func (w *Writer) run() {
	defer close(w.done)
	if err := w.openfile(); err != nil {
		os.Stdout.Write([]byte("open log file error: " + err.Error() + "\n"))
		for range w.chanWorker {
		}
		return
	}
	tc := time.NewTicker(time.Second)
	defer tc.Stop()
	for {
		select {
		case ld, ok := <-w.chanWorker:
			if !ok {
				w.buff.Flush()
				w.fno.Close()
				return
			}
			n, _ := w.buff.Write(ld.Bytes(w.cnf.timeformat))
			w.currentSize += int64(n)
			if w.cnf.maxsize > 0 && w.currentSize >= w.cnf.maxsize {
				w.roll()
			}
		case <-tc.C:
			w.buff.Flush()
		}
	}
}

func (w *Writer) roll() {
	w.buff.Flush()
	w.fno.Close()
	oldfile := w.filename + "." + time.Now().Format(fileBackupFormat)
	os.Rename(w.filename, oldfile)
	if err := w.openfile(); err != nil {
		panic(err)
	}
	loopfunc.GoFunc(func() {
		archiveFile(oldfile, w.cnf.compress)
		w.cleanup()
	}, "log archive", os.Stdout)
}

// cleanup 按保留天数和个数清理旧日志
func (w *Writer) cleanup() {
	if w.cnf.maxbackups == 0 && w.cnf.maxdays == 0 {
		return
	}
	files, _ := pathtool.SearchFilesByTime(w.cnf.dir, w.cnf.file+".")
	olderthen := time.Time{}
	if w.cnf.maxdays > 0 {
		olderthen = time.Now().AddDate(0, 0, -w.cnf.maxdays)
	}
	keepfiles := make([]string, 0, len(files))
	for _, f := range files {
		if !olderthen.IsZero() && f.ModTime.Before(olderthen) {
			os.Remove(f.Path)
			continue
		}
		keepfiles = append(keepfiles, f.Path)
	}
	if l := len(keepfiles); w.cnf.maxbackups > 0 && l > w.cnf.maxbackups {
		for _, f := range keepfiles[:l-w.cnf.maxbackups] {
			os.Remove(f)
		}
	}
}

func archiveFile(p string, alg compressor.Algorithm) {
	if alg == compressor.None {
		return
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return
	}
	c, err := compressor.Compress(alg, b)
	if err != nil {
		return
	}
	if err = os.WriteFile(p+alg.Ext(), c, 0o664); err == nil {
		os.Remove(p)
	}
}

// NewWriter 创建日志写入器，未设置文件名时输出到控制台
func NewWriter(opts ...Options) io.Writer {
	opt := defaultWriterOpts()
	for _, o := range opts {
		o(opt)
	}
	if opt.file == "" {
		return &Writer{cnf: opt, out: os.Stdout}
	}
	os.MkdirAll(opt.dir, 0o775)
	w := &Writer{
		cnf:        opt,
		filename:   filepath.Join(opt.dir, opt.file),
		chanWorker: make(chan *logData, 200),
		done:       make(chan struct{}),
		buff:       bufio.NewWriterSize(io.Discard, 8192*4),
	}
	go w.run()
	return w
}

// NewConsoleWriter 控制台输出，时间戳不含日期
func NewConsoleWriter() io.Writer {
	o := defaultWriterOpts()
	o.timeformat = ShortTimeFormat
	return &Writer{
		cnf: o,
		out: os.Stdout,
	}
}
