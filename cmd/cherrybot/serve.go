package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	ginmiddleware "github.com/xyzj/cherrybot/ginmiddle"
	"github.com/xyzj/cherrybot/llms/manager"
	"github.com/xyzj/cherrybot/llms/ollama"
	"github.com/xyzj/cherrybot/llms/session"
	"github.com/xyzj/cherrybot/llms/storage"
	"github.com/xyzj/cherrybot/proc"
	"github.com/xyzj/cherrybot/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "start the web server (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logg := cfg.Log.NewLogger()
	defer func() {
		if c, ok := logg.DefaultWriter().(io.Closer); ok {
			c.Close()
		}
	}()
	if !cfg.HTTP.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := storage.New(&cfg.Storage)
	if err != nil {
		return err
	}
	client := ollama.New(
		ollama.OptServerAddr(cfg.Ollama.Addr),
		ollama.OptModel(cfg.Ollama.Model),
		ollama.OptTemperature(cfg.Ollama.Temperature),
		ollama.OptTimeout(cfg.Ollama.Timeout),
		ollama.OptVerifyTLS(cfg.Ollama.VerifyTLS),
		ollama.OptLogger(logg),
	)
	mgr := manager.New(client, store,
		manager.OptSessionLifeTime(cfg.Session.LifeTime),
		manager.OptLogger(logg),
		manager.OptSessionOpts(
			session.OptModel(cfg.Ollama.Model),
			session.OptAutoSave(cfg.Session.AutoSave),
		),
	)
	defer mgr.Close()

	rec, err := proc.StartRecord(&proc.RecordOpt{
		Logg:    logg,
		Backend: client,
		Timer:   cfg.Status.Interval,
		Name:    cfg.Ollama.Model,
	})
	if err != nil {
		return err
	}
	defer rec.Stop()

	srv := web.New(mgr,
		web.OptLogger(logg),
		web.OptStatus(rec),
		web.OptCookieKey(cfg.HTTP.CookieKey),
		web.OptCookieAge(cfg.Session.LifeTime),
		web.OptMaxTokens(cfg.Ollama.MaxTokens),
		web.OptRateLimit(cfg.HTTP.RateLimit),
		web.OptHosts(cfg.HTTP.Hosts...),
	)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logg.System("[MAIN] cherrybot " + version + ", model " + cfg.Ollama.Model + " at " + cfg.Ollama.Addr)
	return ginmiddleware.ListenAndServe(ctx,
		ginmiddleware.OptHTTP(cfg.HTTP.Addr),
		ginmiddleware.OptEngine(srv.Handler(logg.DefaultWriter())),
		ginmiddleware.OptLogger(logg),
		ginmiddleware.OptReadTimeout(cfg.HTTP.ReadTimeout),
		ginmiddleware.OptWriteTimeout(cfg.Ollama.Timeout+time.Second*30),
		ginmiddleware.OptIdleTimeout(cfg.HTTP.IdleTimeout),
		ginmiddleware.OptShutdownTimeout(cfg.HTTP.ShutdownTimeout),
	)
}
