package command

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hostbridge/internal/cli/output"
	"github.com/yndnr/hostbridge/internal/config"
	"github.com/yndnr/hostbridge/internal/infra/buildinfo"
	"github.com/yndnr/hostbridge/internal/platform"
	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

const envKey = "hostbridge.env"

// Env is the state shared by commands.
type Env struct {
	Config     *config.Config
	ConfigPath string
	Logger     logger.Logger
	Format     output.Format
	Out        io.Writer

	// Adapter overrides platform selection, for tests.
	Adapter platform.Adapter
}

// Slog returns the logger for components taking a *slog.Logger.
func (e *Env) Slog() *slog.Logger {
	return e.Logger.Slog()
}

// Print formats data to Out.
func (e *Env) Print(data any) error {
	return output.NewFormatter(e.Format).Format(e.Out, data)
}

// Platform returns the configured platform adapter.
func (e *Env) Platform() (platform.Adapter, error) {
	if e.Adapter != nil {
		return e.Adapter, nil
	}
	return platform.Select(e.Config.Platform)
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "hostbridge",
		Usage:   "Prepare a Go runtime to run inside a restricted host process",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			InitCommand(),
			TrustCommand(),
			AssetCommand(),
			PrefsCommand(),
			BundleCommand(),
			ServeCommand(),
			VersionCommand(),
		},
		Before: setup,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"HOSTBRIDGE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   string(output.FormatTable),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error (overrides log.level)",
		},
	}
}

func setup(c *cli.Context) error {
	format, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return err
	}

	path := c.String("config")
	cfg, err := config.Load(path, map[string]any{
		"log.level": c.String("log-level"),
	})
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: c.App.ErrWriter,
	})
	if err != nil {
		return err
	}
	logger.SetDefault(log)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	env, _ := c.App.Metadata[envKey].(*Env)
	if env == nil {
		env = &Env{}
		c.App.Metadata[envKey] = env
	}
	env.Config = cfg
	env.ConfigPath = path
	env.Logger = log
	env.Format = format
	env.Out = c.App.Writer
	return nil
}

// GetEnv retrieves the command environment from the context.
func GetEnv(c *cli.Context) *Env {
	env, _ := c.App.Metadata[envKey].(*Env)
	return env
}

// Preset installs env before the Before hook fills it, so tests can pin
// the platform adapter.
func Preset(app *cli.App, env *Env) {
	if app.Metadata == nil {
		app.Metadata = map[string]any{}
	}
	app.Metadata[envKey] = env
}
