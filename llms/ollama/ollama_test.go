package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"github.com/xyzj/cherrybot/llms"
)

func fakeOllama(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		req := gjson.ParseBytes(b)
		turns := req.Get("messages").Array()
		last := turns[len(turns)-1].Get("content").String()
		switch last {
		case "broken":
			w.Write([]byte(`not json`))
			return
		case "nocontent":
			w.Write([]byte(`{"done":true}`))
			return
		case "fail":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"model not found"}`))
			return
		}
		if req.Get("stream").Bool() {
			w.Write([]byte(`{"message":{"role":"assistant","content":"Hi"},"done":false}` + "\n"))
			w.Write([]byte(`{"message":{"role":"assistant","content":" there"},"done":false}` + "\n"))
			w.Write([]byte(`{"message":{"role":"assistant","content":""},"done":true}` + "\n"))
			return
		}
		w.Write([]byte(`{"model":"` + req.Get("model").String() + `","message":{"role":"assistant","content":"Hi there"},"done":true}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		req := gjson.ParseBytes(b)
		assert.False(t, req.Get("stream").Bool())
		assert.Equal(t, int64(5), req.Get("options.num_predict").Int())
		assert.Equal(t, 0.01, req.Get("options.temperature").Float())
		w.Write([]byte(`{"response":"once upon"}`))
	})
	mux.HandleFunc("/api/version", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"0.5.1"}`))
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"models":[{"name":"llama3:latest","size_vram":1024}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func userTurn(s string) *llms.ChatRequest {
	return &llms.ChatRequest{Messages: []*llms.Message{{Role: llms.RoleUser, Content: s}}}
}

func TestChat(t *testing.T) {
	srv := fakeOllama(t)
	c := New(OptServerAddr(srv.URL + "/"))
	msg, err := c.Chat(context.Background(), userTurn("Hello"), nil)
	require.NoError(t, err)
	assert.Equal(t, llms.RoleAssistant, msg.Role)
	assert.Equal(t, "Hi there", msg.Content)
}

func TestChatStream(t *testing.T) {
	srv := fakeOllama(t)
	c := New(OptServerAddr(srv.URL))
	chunks := make([]string, 0)
	msg, err := c.Chat(context.Background(), userTurn("Hello"), func(b []byte) error {
		chunks = append(chunks, string(b))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi", " there"}, chunks)
	assert.Equal(t, "Hi there", msg.Content)
}

func TestChatErrors(t *testing.T) {
	srv := fakeOllama(t)
	c := New(OptServerAddr(srv.URL))
	_, err := c.Chat(context.Background(), userTurn("broken"), nil)
	assert.ErrorIs(t, err, llms.ErrInvalidResponse)

	_, err = c.Chat(context.Background(), userTurn("nocontent"), nil)
	assert.ErrorIs(t, err, llms.ErrInvalidResponse)

	_, err = c.Chat(context.Background(), userTurn("fail"), nil)
	assert.ErrorIs(t, err, llms.ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "model not found")

	down := New(OptServerAddr("http://127.0.0.1:1"), OptTimeout(time.Second))
	_, err = down.Chat(context.Background(), userTurn("Ping"), nil)
	assert.ErrorIs(t, err, llms.ErrBackendUnavailable)
}

func TestGenerate(t *testing.T) {
	srv := fakeOllama(t)
	c := New(OptServerAddr(srv.URL))
	s, err := c.Generate(context.Background(), "tell a story", 5)
	require.NoError(t, err)
	assert.Equal(t, "once upon", s)

	_, err = c.Generate(context.Background(), "tell a story", 0)
	assert.ErrorIs(t, err, llms.ErrValidation)
}

func TestStatus(t *testing.T) {
	srv := fakeOllama(t)
	st, err := New(OptServerAddr(srv.URL)).Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Online)
	assert.True(t, st.GPU)
	assert.Equal(t, "0.5.1", st.Version)
	assert.Equal(t, []string{"llama3:latest"}, st.Models)

	st, err = New(OptServerAddr("http://127.0.0.1:1")).Status(context.Background())
	assert.ErrorIs(t, err, llms.ErrBackendUnavailable)
	assert.False(t, st.Online)
}

func TestVerifyTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"version":"0.5.1","models":[]}`))
	}))
	defer srv.Close()

	st, err := New(OptServerAddr(srv.URL)).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.5.1", st.Version)

	// 自签名证书校验失败
	_, err = New(OptServerAddr(srv.URL), OptVerifyTLS(true)).Status(context.Background())
	assert.ErrorIs(t, err, llms.ErrBackendUnavailable)
}

func TestOptions(t *testing.T) {
	c := New(OptServerAddr("http://h:1/api/chat"), OptModel(""), OptTimeout(-1))
	assert.Equal(t, "http://h:1", c.ServerAddr())
	assert.Equal(t, DefaultModel, c.Model())
	assert.Equal(t, DefaultTimeout, c.opt.timeout)
}
