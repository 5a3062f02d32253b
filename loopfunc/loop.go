/*
Package loopfunc ： 用于控制需要持续运行的循环方法，当方法漰溃时会自动重启
*/
package loopfunc

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
)

// LoopFunc 执行循环工作，并提供panic恢复
//
// f: 要执行的循环方法
//
// name：这个方法的名称，用于错误标识
//
// logWriter：方法崩溃时的日志记录器，默认os.stdout
func LoopFunc(f func(), name string, logWriter io.Writer) {
	LoopWithRetry(f, name, logWriter, time.Second*20, 0)
}

// LoopWithRetry 执行循环工作，并在指定的等待时间后提供panic恢复，panic次数可设置
//
// retry：panic最大次数，0 表示不限
func LoopWithRetry(f func(), name string, logWriter io.Writer, timewait time.Duration, retry int) {
	if logWriter == nil {
		logWriter = os.Stdout
	}
	errCount := 0
	for {
		if !runSafe(f, name, logWriter) {
			return
		}
		errCount++
		if retry > 0 && errCount >= retry {
			logWriter.Write([]byte(name + " [LOOP] the maximum number of retries has been reached, the end.\n"))
			return
		}
		time.Sleep(timewait)
	}
}

// GoFunc 执行安全的子线程工作，包含panic捕获
func GoFunc(f func(), name string, logWriter io.Writer) {
	if logWriter == nil {
		logWriter = os.Stdout
	}
	go runSafe(f, name, logWriter)
}

// runSafe returns true when f panicked
func runSafe(f func(), name string, logWriter io.Writer) (crashed bool) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			fmt.Fprintf(logWriter, "%s [LOOP] crash: %+v\n", name, errors.WithStack(err))
			crashed = true
		}
	}()
	f()
	return false
}
