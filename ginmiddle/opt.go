package ginmiddleware

import (
	"net"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xyzj/cherrybot/logger"
)

var defaultOpt = Opt{
	readTimeout:     time.Second * 120,
	writeTimeout:    time.Second * 300,
	idleTimeout:     time.Second * 60,
	shutdownTimeout: time.Second * 10,
	logg:            logger.NewConsoleLogger(),
	http:            ":8501",
}

// Opt 通用化http框架
type Opt struct {
	engine          *gin.Engine
	logg            logger.Logger
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	http            string
}
type Opts func(opt *Opt)

func OptEngine(r *gin.Engine) Opts {
	return func(opt *Opt) {
		opt.engine = r
	}
}

func OptLogger(l logger.Logger) Opts {
	return func(opt *Opt) {
		if l != nil {
			opt.logg = l
		}
	}
}

func OptReadTimeout(t time.Duration) Opts {
	return func(opt *Opt) {
		if t > 0 {
			opt.readTimeout = t
		}
	}
}

// OptWriteTimeout 需大于推理超时，否则长回复会被截断
func OptWriteTimeout(t time.Duration) Opts {
	return func(opt *Opt) {
		if t > 0 {
			opt.writeTimeout = t
		}
	}
}

func OptIdleTimeout(t time.Duration) Opts {
	return func(opt *Opt) {
		if t > 0 {
			opt.idleTimeout = t
		}
	}
}

func OptShutdownTimeout(t time.Duration) Opts {
	return func(opt *Opt) {
		if t > 0 {
			opt.shutdownTimeout = t
		}
	}
}

func OptHTTP(s string) Opts {
	return func(opt *Opt) {
		if _, err := net.ResolveTCPAddr("tcp", s); err != nil {
			opt.http = ""
			return
		}
		opt.http = s
	}
}
