package command

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
)

// TrustCommand returns the trust subcommand group.
func TrustCommand() *cli.Command {
	return &cli.Command{
		Name:  "trust",
		Usage: "Trust bundle commands",
		Subcommands: []*cli.Command{
			{
				Name:  "build",
				Usage: "Aggregate certificate store entries into a PEM bundle",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "dir",
						Usage: "Certificate store directory, repeatable (default platform.cert_dirs)",
					},
					&cli.StringFlag{
						Name:  "out",
						Usage: "Bundle path (default trust.target, else a new file in the temp directory)",
					},
				},
				Action: trustBuild,
			},
			{
				Name:  "verify",
				Usage: "Load a bundle into a certificate pool and count its roots",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Bundle path (default the path published in trust.env_var)",
					},
				},
				Action: trustVerify,
			},
		},
	}
}

type buildResult struct {
	Path    string   `json:"path" yaml:"path"`
	EnvVar  string   `json:"env_var" yaml:"env_var"`
	Entries int      `json:"entries" yaml:"entries"`
	Skipped []string `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

func trustBuild(c *cli.Context) error {
	env := GetEnv(c)

	dirs := c.StringSlice("dir")
	if len(dirs) == 0 {
		dirs = env.Config.Platform.CertDirs
	}
	if out := c.String("out"); out != "" {
		env.Config.Trust.Target = out
	}

	agg := newAggregator(env, nil)
	res, err := agg.Build(dirs)
	if err != nil {
		return err
	}
	return env.Print(buildResult{
		Path:    res.Path,
		EnvVar:  agg.EnvVar(),
		Entries: len(res.Entries),
		Skipped: res.Skipped,
	})
}

type verifyResult struct {
	Path         string `json:"path" yaml:"path"`
	Certificates int    `json:"certificates" yaml:"certificates"`
}

func trustVerify(c *cli.Context) error {
	env := GetEnv(c)

	path := c.String("file")
	if path == "" {
		path = os.Getenv(env.Config.Trust.EnvVar)
	}

	pool := tlsroots.NewEmptyPool()
	var (
		n   int
		err error
	)
	if path == "" {
		n, err = pool.AddBundleFromEnv(env.Config.Trust.EnvVar)
	} else {
		n, err = pool.AddBundleFile(path)
	}
	if err != nil {
		return err
	}
	return env.Print(verifyResult{Path: path, Certificates: n})
}
