// Package config yaml 配置文件，文件不存在时写入默认值
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/xyzj/cherrybot/compressor"
	"github.com/xyzj/cherrybot/llms/storage"
	"github.com/xyzj/cherrybot/logger"
	"gopkg.in/yaml.v3"
)

const DefaultFilename = "cherrybot.yaml"

type HTTP struct {
	Addr string `yaml:"addr"`
	// 每秒允许的 /api 请求数，0 不限制
	RateLimit int `yaml:"rate_limit"`
	// 会话 cookie 签名密钥，为空时每次启动随机生成
	CookieKey string `yaml:"cookie_key"`
	// 允许访问的 Host，为空不限制
	Hosts           []string      `yaml:"hosts,omitempty"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	Debug           bool          `yaml:"debug"`
}

type Ollama struct {
	Addr        string        `yaml:"addr"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	VerifyTLS   bool          `yaml:"verify_tls"`
	// 单次补全页面上的默认长度
	MaxTokens int `yaml:"max_tokens"`
}

type Session struct {
	LifeTime time.Duration `yaml:"lifetime"`
	AutoSave bool          `yaml:"autosave"`
}

type Log struct {
	Level      string `yaml:"level"`
	Dir        string `yaml:"dir"`
	File       string `yaml:"file"` // 为空时只输出到控制台
	Days       int    `yaml:"days"`
	MaxBackups int    `yaml:"max_backups"`
	MaxSize    int64  `yaml:"max_size"`
	Compress   string `yaml:"compress"`
	TimeFormat string `yaml:"time_format"` // 文件日志时间格式，为空用默认
}

type Status struct {
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	HTTP    HTTP           `yaml:"http"`
	Ollama  Ollama         `yaml:"ollama"`
	Storage storage.Config `yaml:"storage"`
	Session Session        `yaml:"session"`
	Log     Log            `yaml:"log"`
	Status  Status         `yaml:"status"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTP{
			Addr:            ":8501",
			RateLimit:       20,
			ReadTimeout:     time.Second * 30,
			IdleTimeout:     time.Second * 120,
			ShutdownTimeout: time.Second * 10,
		},
		Ollama: Ollama{
			Addr:        "http://localhost:11434",
			Model:       "llama3",
			Temperature: 0.01,
			Timeout:     time.Minute * 3,
			MaxTokens:   256,
		},
		Storage: storage.Config{
			Type:     "file",
			Filename: "data/cherrybot.db",
			Compress: "snappy",
			Driver:   "sqlite",
			DSN:      "data/cherrybot.sqlite",
		},
		Session: Session{
			LifeTime: time.Hour * 24,
			AutoSave: true,
		},
		Log: Log{
			Level:    "info",
			Dir:      "log",
			Days:     7,
			MaxSize:  10 << 20,
			Compress: "zstd",
		},
		Status: Status{
			Interval: time.Minute,
		},
	}
}

// Load reads path over the defaults. A missing file is created with the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFilename
	}
	cfg := Default()
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, cfg.Save(path)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	if err = yaml.Unmarshal(b, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	if err = os.MkdirAll(filepath.Dir(path), 0o775); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	return errors.Wrap(os.WriteFile(path, b, 0o664), "write config file")
}

func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Ollama.Addr == "" {
		return errors.New("ollama.addr is required")
	}
	if c.Ollama.Timeout < time.Second {
		return errors.New("ollama.timeout must be at least 1s")
	}
	if c.Ollama.MaxTokens < 1 {
		return errors.New("ollama.max_tokens must be at least 1")
	}
	if _, err := storage.ParseStorageType(c.Storage.Type); err != nil {
		return err
	}
	if _, err := compressor.ParseAlgorithm(c.Storage.Compress); err != nil {
		return errors.Wrap(err, "storage.compress")
	}
	if _, err := compressor.ParseAlgorithm(c.Log.Compress); err != nil {
		return errors.Wrap(err, "log.compress")
	}
	return nil
}

// NewLogger console logger, plus a rotating file when log.file is set
func (l *Log) NewLogger() logger.Logger {
	level := logger.ParseLevel(l.Level)
	if l.File == "" {
		return logger.NewConsoleLoggerWithLevel(level)
	}
	alg, _ := compressor.ParseAlgorithm(l.Compress)
	return logger.NewMultiLogger(
		logger.NewConsoleLoggerWithLevel(level),
		logger.NewLogger(level,
			logger.WithFileDir(l.Dir),
			logger.WithFilename(l.File),
			logger.WithFileDays(l.Days),
			logger.WithMaxBackups(l.MaxBackups),
			logger.WithFileSize(l.MaxSize),
			logger.WithCompress(alg),
			logger.WithTimeFormat(l.TimeFormat),
		),
	)
}
