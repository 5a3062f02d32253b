package ginmiddleware

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	json "github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/logger"
	"github.com/xyzj/cherrybot/loopfunc"
)

const logStr = "|%3d |%-13s|%-15s|%-6s %s |%s"

type logParam struct {
	timer      time.Duration
	keys       map[string]any
	jsn        []byte
	clientIP   string
	method     string
	path       string
	statusCode int
}

// LogToWriter 访问日志，由独立协程写入 w
func LogToWriter(w io.Writer, skippath ...string) gin.HandlerFunc {
	// 设置io
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w
	chanlog := make(chan *logParam, 200)
	if len(skippath) == 0 {
		skippath = []string{"/favicon.ico", "/static"}
	}
	go loopfunc.LoopFunc(func() {
		for a := range chanlog {
			if len(a.keys) > 0 {
				a.jsn, _ = json.Marshal(a.keys)
			}
			s := fmt.Appendf([]byte{}, logStr, a.statusCode, a.timer, a.clientIP, a.method, a.path, a.jsn)
			w.Write(s)
			if gin.IsDebugging() {
				println(time.Now().Format(logger.ShortTimeFormat) + json.String(s))
			}
		}
	}, "http log", w)
	return func(c *gin.Context) {
		for _, v := range skippath {
			if strings.HasPrefix(c.Request.URL.Path, v) {
				return
			}
		}
		start := time.Now()
		c.Next()
		// Stop timer
		chanlog <- &logParam{
			timer:      time.Since(start),
			path:       c.Request.URL.Path,
			clientIP:   GetClientIP(c),
			method:     c.Request.Method,
			statusCode: c.Writer.Status(),
			keys:       c.Keys,
		}
	}
}
