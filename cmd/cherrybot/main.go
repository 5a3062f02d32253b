package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/xyzj/cherrybot/config"
	"github.com/xyzj/cherrybot/pathtool"
)

var (
	version = "0.1.0"

	cfgFile string
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:          "cherrybot",
	Short:        "cherrybot is a browser chat front end for a local ollama server",
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file, created with defaults when missing")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "runtime root, conf/log/data dirs are created under it")
	rootCmd.AddCommand(serveCmd, exportCmd, versionCmd)
}

// loadConfig 读取配置，设置了 root 时相对路径都以 root 为基准
func loadConfig() (*config.Config, error) {
	if rootDir == "" {
		return config.Load(cfgFile)
	}
	conf, logdir, datadir := pathtool.MakeRuntimeDirs(rootDir)
	fn := cfgFile
	if fn == "" {
		fn = filepath.Join(conf, config.DefaultFilename)
	}
	cfg, err := config.Load(fn)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(cfg.Log.Dir) {
		cfg.Log.Dir = logdir
	}
	if cfg.Storage.Filename != "" && !filepath.IsAbs(cfg.Storage.Filename) {
		cfg.Storage.Filename = filepath.Join(datadir, filepath.Base(cfg.Storage.Filename))
	}
	if cfg.Storage.Type == "sql" && (cfg.Storage.Driver == "" || cfg.Storage.Driver == "sqlite") &&
		cfg.Storage.DSN != "" && !filepath.IsAbs(cfg.Storage.DSN) {
		cfg.Storage.DSN = filepath.Join(datadir, filepath.Base(cfg.Storage.DSN))
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
