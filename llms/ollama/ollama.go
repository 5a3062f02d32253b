// Package ollama 调用本地 ollama 服务的对话及补全接口
package ollama

import (
	"bytes"
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/xyzj/cherrybot/httpclient"
	"github.com/xyzj/cherrybot/json"
	"github.com/xyzj/cherrybot/llms"
	"github.com/xyzj/cherrybot/logger"
)

const (
	DefaultServerAddr  = "http://localhost:11434"
	DefaultModel       = "llama3"
	DefaultTemperature = 0.01
	DefaultTimeout     = time.Minute * 3
)

type Opt struct {
	serverAddr  string
	model       string
	temperature float64
	timeout     time.Duration
	verifyTLS   bool
	logg        logger.Logger
}
type Opts func(opt *Opt)

func OptServerAddr(s string) Opts {
	return func(o *Opt) {
		s = strings.TrimSuffix(strings.TrimSpace(s), "/")
		s = strings.TrimSuffix(s, "/api/chat")
		if s != "" {
			o.serverAddr = s
		}
	}
}

func OptModel(s string) Opts {
	return func(o *Opt) {
		if s != "" {
			o.model = s
		}
	}
}

func OptTemperature(t float64) Opts {
	return func(o *Opt) {
		if t >= 0 {
			o.temperature = t
		}
	}
}

// OptTimeout 单次请求超时，包括流式读取的全部时间
func OptTimeout(t time.Duration) Opts {
	return func(o *Opt) {
		if t > 0 {
			o.timeout = t
		}
	}
}

// OptVerifyTLS 校验 https 服务端证书，默认不校验（常见为自签名的反向代理）
func OptVerifyTLS(b bool) Opts {
	return func(o *Opt) {
		o.verifyTLS = b
	}
}

func OptLogger(l logger.Logger) Opts {
	return func(o *Opt) {
		if l != nil {
			o.logg = l
		}
	}
}

// Client talks to one ollama server, safe for concurrent use
type Client struct {
	client *httpclient.Client
	opt    *Opt
}

func (c *Client) Model() string {
	return c.opt.model
}

func (c *Client) ServerAddr() string {
	return c.opt.serverAddr
}

// Chat sends the whole turn list to /api/chat and returns the assistant turn.
// With f set the reply is streamed and every content chunk is passed to f,
// an error from f aborts the request and is returned unchanged.
func (c *Client) Chat(ctx context.Context, req *llms.ChatRequest, f func([]byte) error) (*llms.Message, error) {
	data := &llms.ChatRequest{
		Messages: req.Messages,
		Model:    req.Model,
		Stream:   f != nil,
	}
	if data.Model == "" {
		data.Model = c.opt.model
	}
	body, err := data.Marshal()
	if err != nil {
		return nil, errors.Wrap(llms.ErrInvalidResponse, "encode chat request: "+err.Error())
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opt.serverAddr+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(llms.ErrBackendUnavailable, err.Error())
	}
	if f == nil {
		_, b, _, err := c.client.DoRequest(hreq, httpclient.OptTimeout(c.opt.timeout), httpclient.OptNotLog())
		if err != nil {
			return nil, backendError(err)
		}
		return parseChat(b)
	}

	buf := &strings.Builder{}
	done := false
	var cbErr error
	err = c.client.DoStreamRequest(hreq, nil, func(b []byte) error {
		b = bytes.TrimSpace(b)
		if len(b) == 0 {
			return nil
		}
		if !gjson.ValidBytes(b) {
			cbErr = errors.Wrap(llms.ErrInvalidResponse, "stream chunk is not json")
			return cbErr
		}
		r := gjson.ParseBytes(b)
		if e := r.Get("error"); e.Exists() {
			cbErr = errors.Wrap(llms.ErrBackendUnavailable, e.String())
			return cbErr
		}
		if s := r.Get("message.content").String(); s != "" {
			buf.WriteString(s)
			if err := f(json.Bytes(s)); err != nil {
				cbErr = err
				return err
			}
		}
		if r.Get("done").Bool() {
			done = true
		}
		return nil
	}, httpclient.OptTimeout(c.opt.timeout))
	if cbErr != nil {
		return nil, cbErr
	}
	if err != nil {
		return nil, backendError(err)
	}
	if !done {
		return nil, errors.Wrap(llms.ErrInvalidResponse, "stream ended before done")
	}
	return &llms.Message{Role: llms.RoleAssistant, Content: buf.String()}, nil
}

// Generate single-shot completion on /api/generate, the reply is limited to maxTokens
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if maxTokens < 1 {
		return "", errors.Wrap(llms.ErrValidation, "max tokens must be at least 1")
	}
	body, _ := sjson.SetBytes([]byte(`{"stream":false}`), "model", c.opt.model)
	body, _ = sjson.SetBytes(body, "prompt", prompt)
	body, _ = sjson.SetBytes(body, "options.num_predict", maxTokens)
	body, _ = sjson.SetBytes(body, "options.temperature", c.opt.temperature)
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opt.serverAddr+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(llms.ErrBackendUnavailable, err.Error())
	}
	_, b, _, err := c.client.DoRequest(hreq, httpclient.OptTimeout(c.opt.timeout), httpclient.OptNotLog())
	if err != nil {
		return "", backendError(err)
	}
	if !gjson.ValidBytes(b) {
		return "", errors.Wrap(llms.ErrInvalidResponse, "generate reply is not json")
	}
	r := gjson.GetBytes(b, "response")
	if r.Type != gjson.String {
		return "", errors.Wrap(llms.ErrInvalidResponse, "generate reply has no response")
	}
	return r.String(), nil
}

// Status asks /api/version and /api/ps. A model with size_vram > 0 is running on the GPU.
func (c *Client) Status(ctx context.Context) (*llms.BackendStatus, error) {
	st := &llms.BackendStatus{Models: make([]string, 0)}
	b, err := c.get(ctx, "/api/version")
	if err != nil {
		return st, err
	}
	st.Online = true
	st.Version = gjson.GetBytes(b, "version").String()
	b, err = c.get(ctx, "/api/ps")
	if err != nil {
		return st, err
	}
	for _, m := range gjson.GetBytes(b, "models").Array() {
		st.Models = append(st.Models, m.Get("name").String())
		if m.Get("size_vram").Int() > 0 {
			st.GPU = true
		}
	}
	return st, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opt.serverAddr+path, nil)
	if err != nil {
		return nil, errors.Wrap(llms.ErrBackendUnavailable, err.Error())
	}
	_, b, _, err := c.client.DoRequest(hreq, httpclient.OptTimeout(time.Second*5), httpclient.OptNotLog())
	if err != nil {
		return nil, backendError(err)
	}
	if !gjson.ValidBytes(b) {
		return nil, errors.Wrap(llms.ErrInvalidResponse, path+" reply is not json")
	}
	return b, nil
}

func parseChat(b []byte) (*llms.Message, error) {
	if !gjson.ValidBytes(b) {
		return nil, errors.Wrap(llms.ErrInvalidResponse, "chat reply is not json")
	}
	m := gjson.GetBytes(b, "message")
	content := m.Get("content")
	if !m.IsObject() || content.Type != gjson.String {
		return nil, errors.Wrap(llms.ErrInvalidResponse, "chat reply has no message content")
	}
	if role := m.Get("role").String(); role != "" && role != string(llms.RoleAssistant) {
		return nil, errors.Wrap(llms.ErrInvalidResponse, "chat reply role is "+role)
	}
	return &llms.Message{Role: llms.RoleAssistant, Content: content.String()}, nil
}

func backendError(err error) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		if msg := gjson.Get(se.Body, "error").String(); msg != "" {
			return errors.Wrap(llms.ErrBackendUnavailable, msg)
		}
	}
	return errors.Wrap(llms.ErrBackendUnavailable, err.Error())
}

// New ollama client, defaults to llama3 on localhost:11434
func New(opts ...Opts) *Client {
	opt := &Opt{
		serverAddr:  DefaultServerAddr,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
		logg:        logger.NewNilLogger(),
	}
	for _, o := range opts {
		o(opt)
	}
	hopts := []httpclient.HTTPOpts{httpclient.OptLogger(opt.logg)}
	if opt.verifyTLS {
		hopts = append(hopts, httpclient.OptTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	}
	return &Client{
		client: httpclient.New(hopts...),
		opt:    opt,
	}
}
