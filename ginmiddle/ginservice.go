// Package ginmiddleware 基于gin的web框架封装
package ginmiddleware

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// ListenAndServe 启动服务，ctx 结束时优雅关闭
func ListenAndServe(ctx context.Context, opts ...Opts) error {
	opt := defaultOpt
	for _, o := range opts {
		o(&opt)
	}
	if opt.http == "" {
		return errors.New("no service port is valid")
	}
	h := opt.engine
	if h == nil {
		h = gin.New()
	}
	findRoot := false
	for _, v := range h.Routes() {
		if v.Path == "/" {
			findRoot = true
			break
		}
	}
	if !findRoot {
		h.GET("/", PageDefault)
	}
	s := &http.Server{
		Addr:         opt.http,
		ReadTimeout:  opt.readTimeout,
		WriteTimeout: opt.writeTimeout,
		IdleTimeout:  opt.idleTimeout,
		Handler:      h,
	}
	errc := make(chan error, 1)
	go func() {
		opt.logg.System("[HTTP] Start HTTP server at " + opt.http)
		errc <- s.ListenAndServe()
	}()
	select {
	case err := <-errc:
		return errors.Wrap(err, "start http server")
	case <-ctx.Done():
	}
	opt.logg.System("[HTTP] Shutting down HTTP server")
	sctx, cancel := context.WithTimeout(context.Background(), opt.shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(sctx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	return nil
}

// LiteEngine 轻量化基础引擎
func LiteEngine(w io.Writer, hosts ...string) *gin.Engine {
	r := gin.New()
	// 特殊路由处理
	r.HandleMethodNotAllowed = true
	r.NoMethod(Page405)
	r.NoRoute(Page404)
	// 允许跨域
	r.Use(cors.New(cors.Config{
		MaxAge:           time.Hour * 24,
		AllowCredentials: true,
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
	}))
	// 处理转发ip
	r.Use(XForwardedIP())
	// 配置日志
	r.Use(LogToWriter(w))
	// 故障恢复
	r.Use(Recovery(w))
	// 安全头
	r.Use(SecurityHeaders(gin.IsDebugging()))
	// 绑定域名
	r.Use(bindHosts(hosts...))
	return r
}

func bindHosts(hosts ...string) gin.HandlerFunc {
	if len(hosts) == 0 {
		return func(c *gin.Context) {}
	}
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.Host)
		if err != nil {
			host = c.Request.Host
		}
		for _, v := range hosts {
			if v == host {
				return
			}
		}
		c.Set("status", 0)
		c.Set("detail", "forbidden")
		c.AbortWithStatusJSON(http.StatusForbidden, c.Keys)
	}
}
