package httpclient

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/logger"
)

type HTTPClient interface {
	DoRequest(*http.Request, ...ReqOpts) (int, []byte, map[string]string, error)
	DoStreamRequest(*http.Request, func(map[string]string), func([]byte) error, ...ReqOpts) error
}

const (
	HEADER_RESP_FROM     = "Resp-From"
	HEADER_RESP_DURATION = "Resp-Duration"

	maxLineSize = 1 << 20
)

// StatusError the server answered with a non 200 status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("response status code %d: %s", e.Code, e.Body)
}

type HTTPOpt struct {
	tls  *tls.Config
	logg logger.Logger
}
type HTTPOpts func(opt *HTTPOpt)

func OptTLS(t *tls.Config) HTTPOpts {
	return func(o *HTTPOpt) {
		o.tls = t
	}
}

func OptLogger(l logger.Logger) HTTPOpts {
	return func(o *HTTPOpt) {
		if l != nil {
			o.logg = l
		}
	}
}

var defaultReqOpt = ReqOpt{timeout: time.Second * 10}

type ReqOpt struct {
	timeout time.Duration
	notLog  bool
}
type ReqOpts func(opt *ReqOpt)

func OptNotLog() ReqOpts {
	return func(o *ReqOpt) {
		o.notLog = true
	}
}

// OptTimeout 请求超时，0 表示只受 req.Context() 控制
func OptTimeout(t time.Duration) ReqOpts {
	return func(o *ReqOpt) {
		o.timeout = t
	}
}

type Client struct {
	client *http.Client
	logg   logger.Logger
}

// makeRequest sets a default content type and wraps the request context with the timeout
// from opts. The returned cancel func must always be called.
func (c *Client) makeRequest(req *http.Request, opts ...ReqOpts) (*http.Request, *ReqOpt, context.CancelFunc) {
	opt := defaultReqOpt
	for _, o := range opts {
		o(&opt)
	}
	if req.Header.Get("Content-Type") == "" {
		switch req.Method {
		case http.MethodGet:
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		case http.MethodPost:
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if opt.timeout <= 0 {
		ctx, cancel := context.WithCancel(req.Context())
		return req.WithContext(ctx), &opt, cancel
	}
	ctx, cancel := context.WithTimeout(req.Context(), opt.timeout)
	return req.WithContext(ctx), &opt, cancel
}

func collectHeader(req *http.Request, resp *http.Response, start time.Time) map[string]string {
	h := make(map[string]string)
	h[HEADER_RESP_FROM] = req.Host
	h[HEADER_RESP_DURATION] = time.Since(start).String()
	for k := range resp.Header {
		h[k] = resp.Header.Get(k)
	}
	return h
}

// DoStreamRequest sends an HTTP request and hands the response body to recv line by line,
// the trailing '\n' kept. Returning an error from recv stops reading and is returned as is.
//
// A non 200 status is returned as *StatusError.
func (c *Client) DoStreamRequest(req *http.Request, header func(map[string]string), recv func([]byte) error, opts ...ReqOpts) error {
	req, opt, cancel := c.makeRequest(req, opts...)
	defer cancel()
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logg.Error("Request error:" + fmt.Sprintf("%s %s>%s", req.Method, req.URL.String(), err.Error()))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		c.logg.Error("Response status code not OK:" + fmt.Sprintf("%s %s>%d,%s", req.Method, req.URL.String(), resp.StatusCode, string(b)))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if header != nil {
		header(collectHeader(req, resp, start))
	}
	if recv != nil {
		buf := bufio.NewScanner(resp.Body)
		buf.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for buf.Scan() {
			line := buf.Bytes()
			bb := make([]byte, 0, len(line)+1)
			bb = append(append(bb, line...), '\n')
			if err = recv(bb); err != nil {
				return err
			}
		}
		if err = buf.Err(); err != nil {
			c.logg.Error("Read response body error:" + err.Error())
			return err
		}
	}
	if !opt.notLog {
		c.logg.Debug("STREAM:" + fmt.Sprintf("|%d| %-13s |%s %s", resp.StatusCode, time.Since(start).String(), req.Method, req.URL.String()))
	}
	return nil
}

// DoRequest sends an HTTP request and returns the status code, body and headers.
//
// A non 200 status is returned together with *StatusError.
func (c *Client) DoRequest(req *http.Request, opts ...ReqOpts) (int, []byte, map[string]string, error) {
	req, opt, cancel := c.makeRequest(req, opts...)
	defer cancel()
	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logg.Error("REQ ERR:" + fmt.Sprintf("%s %s>%s", req.Method, req.URL.String(), err.Error()))
		return http.StatusBadGateway, nil, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logg.Error("RESP READ ERR:" + fmt.Sprintf("%s %s>%s", req.Method, req.URL.String(), err.Error()))
		return http.StatusBadGateway, nil, nil, err
	}
	h := collectHeader(req, resp, start)
	if resp.StatusCode != http.StatusOK {
		c.logg.Error("REQ NOT OK:" + fmt.Sprintf("%s %s>%d", req.Method, req.URL.String(), resp.StatusCode))
		return resp.StatusCode, b, h, &StatusError{Code: resp.StatusCode, Body: json.String(b)}
	}
	// 日志
	if !opt.notLog {
		c.logg.Debug("REQ:" + fmt.Sprintf("|%d| %-13s |%s %s>%s", resp.StatusCode, h[HEADER_RESP_DURATION], req.Method, req.URL.String(), json.String(b)))
	}
	return resp.StatusCode, b, h, nil
}

func New(opts ...HTTPOpts) *Client {
	opt := &HTTPOpt{
		tls: &tls.Config{
			InsecureSkipVerify: true,
		},
		logg: logger.NewNilLogger(),
	}
	for _, o := range opts {
		o(opt)
	}
	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				IdleConnTimeout:     time.Second * 10,
				MaxConnsPerHost:     77,
				MaxIdleConns:        1,
				MaxIdleConnsPerHost: 1,
				TLSClientConfig:     opt.tls,
			},
		},
		logg: opt.logg,
	}
}
