package command

import (
	"errors"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hostbridge/internal/bootstrap"
	"github.com/yndnr/hostbridge/internal/envadapter"
	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
	"github.com/yndnr/hostbridge/internal/platform"
	"github.com/yndnr/hostbridge/internal/telemetry/metric"
)

// InitCommand returns the init command.
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize the process environment for a host's files and cache directories",
		Flags: dirFlags(),
		Action: func(c *cli.Context) error {
			env := GetEnv(c)
			adapter, err := env.Platform()
			if err != nil {
				return err
			}
			files, cache, err := hostDirs(c, env)
			if err != nil {
				return err
			}

			orch := newOrchestrator(env, adapter, nil)
			if err := orch.Initialize(c.Context, files, cache); err != nil {
				return err
			}
			return env.Print(describeInit(env, adapter, orch, files, cache))
		},
	}
}

func dirFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "files-dir",
			Usage: "Host-provided persistent files directory (overrides paths.files_dir)",
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "Host-provided cache directory (overrides paths.cache_dir)",
		},
	}
}

func hostDirs(c *cli.Context, env *Env) (files, cache string, err error) {
	files, cache = env.Config.Paths.FilesDir, env.Config.Paths.CacheDir
	if v := c.String("files-dir"); v != "" {
		files = v
	}
	if v := c.String("cache-dir"); v != "" {
		cache = v
	}
	if files == "" || cache == "" {
		return "", "", errors.New("files and cache directories are required (--files-dir, --cache-dir)")
	}
	return files, cache, nil
}

func envNames(env *Env) envadapter.Names {
	names := envadapter.DefaultNames()
	if env.Config.Paths.HomeVar != "" {
		names.Home = env.Config.Paths.HomeVar
	}
	return names
}

func newAggregator(env *Env, m *metric.Registry) *tlsroots.Aggregator {
	return tlsroots.NewAggregator(
		tlsroots.WithEnvVar(env.Config.Trust.EnvVar),
		tlsroots.WithTarget(env.Config.Trust.Target),
		tlsroots.WithAggregatorLogger(env.Slog()),
		tlsroots.WithMetrics(m),
	)
}

func newOrchestrator(env *Env, adapter platform.Adapter, m *metric.Registry) *bootstrap.Orchestrator {
	return bootstrap.New(adapter,
		bootstrap.WithEnv(envadapter.New(envNames(env), env.Slog())),
		bootstrap.WithAggregator(newAggregator(env, m)),
		bootstrap.WithLogger(env.Slog()),
		bootstrap.WithMetrics(m),
	)
}

type initResult struct {
	Platform    string            `json:"platform" yaml:"platform"`
	Restricted  bool              `json:"restricted" yaml:"restricted"`
	FilesDir    string            `json:"files_dir" yaml:"files_dir"`
	CacheDir    string            `json:"cache_dir" yaml:"cache_dir"`
	TrustBundle string            `json:"trust_bundle,omitempty" yaml:"trust_bundle,omitempty"`
	Environment map[string]string `json:"environment" yaml:"environment"`
}

func describeInit(env *Env, adapter platform.Adapter, orch *bootstrap.Orchestrator, files, cache string) initResult {
	names := envNames(env)
	vars := map[string]string{}
	for _, name := range []string{names.CacheHome, names.DataHome, names.Home, envadapter.EnvTimezone, env.Config.Trust.EnvVar} {
		if v, ok := os.LookupEnv(name); ok {
			vars[name] = v
		}
	}
	return initResult{
		Platform:    adapter.Name(),
		Restricted:  adapter.Restricted(),
		FilesDir:    files,
		CacheDir:    cache,
		TrustBundle: orch.Aggregator().Last(),
		Environment: vars,
	}
}
