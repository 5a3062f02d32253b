package ginmiddleware

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/ratelimit"
)

// GetClientIPPort 从 gin.Context 中解析请求来源的实际 IP 和端口。
// 优先使用常见代理头（X-Forwarded-For, X-Real-IP, CF-Connecting-IP），
// 若头中包含多个值取第一个；若头只含 IP（无端口）则端口为空。
func GetClientIPPort(c *gin.Context) (string, string) {
	splitHostPort := func(s string) (string, string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return "", ""
		}
		if h, p, err := net.SplitHostPort(s); err == nil {
			return strings.Trim(h, "[]"), p
		}
		return strings.Trim(s, "[]"), ""
	}
	// X-Forwarded-For: may be "client, proxy1, proxy2"
	if xff := strings.TrimSpace(c.Request.Header.Get("X-Forwarded-For")); xff != "" {
		if ip, port := splitHostPort(strings.Split(xff, ",")[0]); ip != "" {
			return ip, port
		}
	}
	for _, h := range []string{"X-Real-IP", "CF-Connecting-IP"} {
		if ip, port := splitHostPort(c.Request.Header.Get(h)); ip != "" {
			return ip, port
		}
	}
	// 最后回退到 RemoteAddr
	return splitHostPort(c.Request.RemoteAddr)
}

func GetClientIP(c *gin.Context) string {
	ip, _ := GetClientIPPort(c)
	return ip
}

// XForwardedIP 替换realip
func XForwardedIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, v := range []string{"CF-Connecting-IP", "X-Real-IP", "X-Forwarded-For"} {
			if ip := c.Request.Header.Get(v); ip != "" {
				_, b, err := net.SplitHostPort(c.Request.RemoteAddr)
				if err == nil {
					c.Request.RemoteAddr = net.JoinHostPort(strings.TrimSpace(strings.Split(ip, ",")[0]), b)
				}
				break
			}
		}
	}
}

// RateLimit 限流器，基于uber-go
//
//	r: 每秒可访问次数,1-500
//	b: 缓冲区大小
func RateLimit(r, b int) gin.HandlerFunc {
	if r < 1 || r > 500 {
		r = 10
	}
	limiter := ratelimit.New(r, ratelimit.WithSlack(b))
	return func(c *gin.Context) {
		limiter.Take()
		c.Next()
	}
}

// SecurityHeaders 安全相关的响应头，页面只加载自身的脚本和样式
func SecurityHeaders(dev bool) gin.HandlerFunc {
	sm := secure.New(secure.Options{
		CustomFrameOptionsValue: "SAMEORIGIN",
		ContentTypeNosniff:      true,
		BrowserXssFilter:        true,
		ReferrerPolicy:          "strict-origin-when-cross-origin",
		ContentSecurityPolicy:   "default-src 'self'; script-src 'self' 'unsafe-inline' https://go-echarts.github.io; style-src 'self' 'unsafe-inline'",
		IsDevelopment:           dev,
	})
	return func(c *gin.Context) {
		if err := sm.Process(c.Writer, c.Request); err != nil {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Header("X-Download-Options", "noopen")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
	}
}

// Recovery 捕获 panic，记录到 w 并返回 500
func Recovery(w io.Writer) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(w, func(c *gin.Context, err any) {
		c.Set("status", 0)
		c.Set("detail", fmt.Sprintf("%v", err))
		c.AbortWithStatusJSON(http.StatusInternalServerError, c.Keys)
	})
}
