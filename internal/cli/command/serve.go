package command

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hostbridge/internal/config"
	"github.com/yndnr/hostbridge/internal/infra/confloader"
	"github.com/yndnr/hostbridge/internal/infra/shutdown"
	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
	"github.com/yndnr/hostbridge/internal/telemetry/logger"
	"github.com/yndnr/hostbridge/internal/telemetry/metric"
)

const shutdownTimeout = 10 * time.Second

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Initialize, keep the trust bundle current and serve /metrics until stopped",
		Flags: append(dirFlags(),
			&cli.StringFlag{
				Name:  "metrics-addr",
				Usage: "Metrics listen address (overrides metrics.addr)",
			},
		),
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	env := GetEnv(c)
	log := env.Logger

	adapter, err := env.Platform()
	if err != nil {
		return err
	}
	files, cache, err := hostDirs(c, env)
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	orch := newOrchestrator(env, adapter, metrics)
	if err := orch.Initialize(c.Context, files, cache); err != nil {
		return err
	}

	addr := env.Config.Metrics.Addr
	if v := c.String("metrics-addr"); v != "" {
		addr = v
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	kv, err := openKV(env)
	if err != nil {
		ln.Close()
		return err
	}
	kv.RegisterMetrics(metrics.Prometheus())

	sh := shutdown.NewHandler(shutdownTimeout)
	sh.OnShutdown(func(context.Context) error {
		log.Info("closing preference store")
		return kv.Close()
	})

	if env.ConfigPath != "" {
		cw, err := watchConfig(env)
		if err != nil {
			ln.Close()
			kv.Close()
			return err
		}
		sh.OnShutdown(func(context.Context) error {
			return cw.Stop()
		})
	}

	if adapter.Restricted() && env.Config.Trust.Watch {
		w := tlsroots.NewWatcher(orch.Aggregator(), adapter.CertDirs(),
			tlsroots.WithLogger(env.Slog()),
			tlsroots.WithRebuildLimit(env.Config.Trust.RebuildInterval),
		)
		w.StartAsync()
		sh.OnShutdown(func(context.Context) error {
			w.Stop()
			return nil
		})
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("metrics server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()
	sh.OnShutdown(func(ctx context.Context) error {
		log.Info("shutting down metrics server")
		return srv.Shutdown(ctx)
	})

	log.Info("hostbridge serving, press Ctrl+C to stop")
	if err := sh.WaitContext(c.Context); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}
	log.Info("hostbridge stopped")
	return nil
}

// watchConfig applies log level changes from the configuration file
// without a restart. Other settings need one.
func watchConfig(env *Env) (*confloader.Watcher, error) {
	cw, err := confloader.NewWatcher(confloader.WithWatcherLogger(env.Slog()))
	if err != nil {
		return nil, err
	}
	if err := cw.Watch(env.ConfigPath); err != nil {
		cw.Stop()
		return nil, err
	}
	cw.OnChange(func(path string) {
		cfg, err := config.Load(path, nil)
		if err != nil {
			env.Logger.Warn("ignoring invalid configuration change", "file", path, "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			env.Logger.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	cw.StartAsync()
	return cw, nil
}
