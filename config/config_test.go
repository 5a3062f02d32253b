package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaults(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "conf", "cherrybot.yaml")
	cfg, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	b, err := os.ReadFile(fn)
	require.NoError(t, err)
	assert.Contains(t, string(b), "timeout: 3m0s")
	assert.Contains(t, string(b), "model: llama3")

	again, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadOverrides(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
ollama:
  model: qwen2
  timeout: 30s
  verify_tls: true
http:
  hosts: [chat.local]
  read_timeout: 5s
log:
  time_format: "2006-01-02"
storage:
  type: sql
  driver: sqlite
`), 0o664))
	cfg, err := Load(fn)
	require.NoError(t, err)
	assert.Equal(t, "qwen2", cfg.Ollama.Model)
	assert.Equal(t, time.Second*30, cfg.Ollama.Timeout)
	assert.Equal(t, "sql", cfg.Storage.Type)
	assert.True(t, cfg.Ollama.VerifyTLS)
	assert.Equal(t, []string{"chat.local"}, cfg.HTTP.Hosts)
	assert.Equal(t, time.Second*5, cfg.HTTP.ReadTimeout)
	assert.Equal(t, time.Second*10, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, "2006-01-02", cfg.Log.TimeFormat)
	// 未配置的保持默认
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.Addr)
	assert.Equal(t, 256, cfg.Ollama.MaxTokens)
}

func TestValidate(t *testing.T) {
	for name, body := range map[string]string{
		"storage":  "storage:\n  type: redis\n",
		"compress": "storage:\n  compress: lz4\n",
		"timeout":  "ollama:\n  timeout: 10ms\n",
		"tokens":   "ollama:\n  max_tokens: 0\n",
		"yaml":     "ollama: [\n",
	} {
		t.Run(name, func(t *testing.T) {
			fn := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(fn, []byte(body), 0o664))
			_, err := Load(fn)
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	l := Default().Log
	assert.NotNil(t, l.NewLogger())
	l.Dir = t.TempDir()
	l.File = "cherrybot.log"
	lg := l.NewLogger()
	lg.Info("hello")
	assert.NotNil(t, lg.DefaultWriter())
}

func TestSaveReportsDirError(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(f, nil, 0o664))
	// 父路径是文件，无法创建目录
	err := Default().Save(filepath.Join(f, "conf", "c.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create config dir")
}
