// Package web 浏览器页面及 json 接口
package web

import (
	"crypto/rand"
	_ "embed"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xyzj/cherrybot/crypto"
	ginmiddleware "github.com/xyzj/cherrybot/ginmiddle"
	"github.com/xyzj/cherrybot/llms/manager"
	"github.com/xyzj/cherrybot/llms/session"
	"github.com/xyzj/cherrybot/logger"
	"github.com/xyzj/cherrybot/proc"
)

//go:embed static/index.html
var pageIndex []byte

const cookieName = "cherrybot_sid"

// StatusSource latest status sample
type StatusSource interface {
	Last() *proc.Status
	BuildLines(width string) []byte
}

type Opt struct {
	logg       logger.Logger
	status     StatusSource
	cookieKey  []byte
	cookieAge  time.Duration
	maxTokens  int
	rateLimit  int
	allowHosts []string
}
type Opts func(opt *Opt)

func OptLogger(l logger.Logger) Opts {
	return func(o *Opt) {
		if l != nil {
			o.logg = l
		}
	}
}

func OptStatus(s StatusSource) Opts {
	return func(o *Opt) {
		o.status = s
	}
}

// OptCookieKey hmac key of the session cookie, empty means a random key
func OptCookieKey(k string) Opts {
	return func(o *Opt) {
		if k != "" {
			o.cookieKey = []byte(k)
		}
	}
}

func OptCookieAge(t time.Duration) Opts {
	return func(o *Opt) {
		if t > 0 {
			o.cookieAge = t
		}
	}
}

// OptMaxTokens default length of a single-shot completion
func OptMaxTokens(n int) Opts {
	return func(o *Opt) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// OptRateLimit requests per second on /api, 0 disables
func OptRateLimit(n int) Opts {
	return func(o *Opt) {
		o.rateLimit = n
	}
}

func OptHosts(hosts ...string) Opts {
	return func(o *Opt) {
		o.allowHosts = hosts
	}
}

type Server struct {
	mgr  *manager.SessionManager
	sign *crypto.HASH
	opt  *Opt
}

func New(mgr *manager.SessionManager, opts ...Opts) *Server {
	opt := &Opt{
		logg:      logger.NewNilLogger(),
		cookieAge: time.Hour * 24,
		maxTokens: 256,
	}
	for _, o := range opts {
		o(opt)
	}
	if len(opt.cookieKey) == 0 {
		opt.cookieKey = make([]byte, 32)
		rand.Read(opt.cookieKey)
	}
	return &Server{
		mgr:  mgr,
		sign: crypto.NewHash(crypto.HashHMACSHA256, crypto.HashOptHMacKey(opt.cookieKey)),
		opt:  opt,
	}
}

// Handler gin engine with every route, access logs go to w
func (s *Server) Handler(w io.Writer) *gin.Engine {
	r := ginmiddleware.LiteEngine(w, s.opt.allowHosts...)
	r.GET("/", s.index)
	r.GET("/status/chart", s.statusChart)
	api := r.Group("/api")
	if s.opt.rateLimit > 0 {
		api.Use(ginmiddleware.RateLimit(s.opt.rateLimit, s.opt.rateLimit*2))
	}
	api.GET("/session", s.getSession)
	api.POST("/chat", s.chat)
	api.POST("/chat/stream", s.chatStream)
	api.POST("/chat/new", s.newChat)
	api.GET("/chats", s.listChats)
	api.GET("/chats/export", s.exportChats)
	api.POST("/chats/:id/select", s.selectChat)
	api.DELETE("/chats/:id", s.deleteChat)
	api.POST("/generate", s.generate)
	api.GET("/status", s.status)
	return r
}

func (s *Server) index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", pageIndex)
}

func (s *Server) signKey(key string) string {
	return key + "." + s.sign.Hash([]byte(key)).URLBase64String()
}

// verifyCookie returns the session key of a correctly signed cookie value
func (s *Server) verifyCookie(v string) string {
	idx := strings.LastIndexByte(v, '.')
	if idx < 1 {
		return ""
	}
	key := v[:idx]
	want := s.sign.Hash([]byte(key)).URLBase64String()
	if !crypto.CValue(want).Equal(crypto.CValue(v[idx+1:])) {
		return ""
	}
	return key
}

// session 读取或新建当前浏览器的会话
func (s *Server) session(c *gin.Context) *session.Session {
	var key string
	if v, err := c.Cookie(cookieName); err == nil {
		key = s.verifyCookie(v)
	}
	nkey, sess := s.mgr.GetOrCreate(key)
	if nkey != key {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, s.signKey(nkey), int(s.opt.cookieAge.Seconds()), "/", "", false, true)
	}
	return sess
}
