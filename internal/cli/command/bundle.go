package command

import (
	"errors"
	"fmt"
	"path"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/hostbridge/internal/resbundle"
)

// BundleCommand returns the bundle subcommand group.
func BundleCommand() *cli.Command {
	lookupFlags := []cli.Flag{
		&cli.StringFlag{Name: "ext", Usage: "Resource extension"},
		&cli.StringFlag{Name: "subdir", Usage: "Subdirectory inside the bundle"},
		&cli.StringFlag{Name: "loc", Usage: "Localization, e.g. fr"},
	}

	return &cli.Command{
		Name:  "bundle",
		Usage: "Resource bundle lookups",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "path",
				Usage: "Bundle path to resolve (default bundle.main)",
			},
			&cli.StringFlag{
				Name:  "module",
				Usage: "Module whose <package>_<module>.resources bundle is served from the asset store",
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "url",
				Usage:     "Print the URL of a resource",
				ArgsUsage: "<name>",
				Flags:     lookupFlags,
				Action: withBundle(func(c *cli.Context, env *Env, b *resbundle.Bundle) error {
					u := b.URLIn(c.Args().First(), c.String("ext"), c.String("subdir"), c.String("loc"))
					if u == nil {
						return notFound(c)
					}
					return env.Print(u.String())
				}),
			},
			{
				Name:      "path",
				Usage:     "Print the filesystem path of a resource",
				ArgsUsage: "<name>",
				Flags:     lookupFlags,
				Action: withBundle(func(c *cli.Context, env *Env, b *resbundle.Bundle) error {
					p := b.PathIn(c.Args().First(), c.String("ext"), c.String("subdir"), c.String("loc"))
					if p == "" {
						return notFound(c)
					}
					return env.Print(p)
				}),
			},
			{
				Name:  "localizations",
				Usage: "List the bundle's localizations",
				Action: withBundle(func(c *cli.Context, env *Env, b *resbundle.Bundle) error {
					return env.Print(b.Localizations())
				}),
			},
			{
				Name:  "info",
				Usage: "Print the bundle's info dictionary",
				Action: withBundle(func(c *cli.Context, env *Env, b *resbundle.Bundle) error {
					info, err := b.InfoDictionary()
					if err != nil {
						return err
					}
					return env.Print(bundleInfo{
						Path:       b.BundlePath(),
						Identifier: b.Identifier(),
						Info:       info,
					})
				}),
			},
		},
	}
}

type bundleInfo struct {
	Path       string         `json:"path" yaml:"path"`
	Identifier string         `json:"identifier" yaml:"identifier"`
	Info       map[string]any `json:"info" yaml:"info"`
}

func notFound(c *cli.Context) error {
	return fmt.Errorf("%w: %s", resbundle.ErrNotFound, c.Args().First())
}

func withBundle(fn func(c *cli.Context, env *Env, b *resbundle.Bundle) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env := GetEnv(c)
		b, err := resolveBundle(c, env)
		if err != nil {
			return err
		}
		return fn(c, env, b)
	}
}

// resolveBundle opens the requested bundle. With a module name and a
// configured main bundle, module bundle paths are redirected to the
// module's resources in the platform asset store.
func resolveBundle(c *cli.Context, env *Env) (*resbundle.Bundle, error) {
	main := env.Config.Bundle.Main
	bundlePath := c.String("path")
	if bundlePath == "" {
		bundlePath = main
	}
	if bundlePath == "" {
		return nil, errors.New("no bundle: set --path or bundle.main")
	}

	r := &resbundle.Resolver{}
	if main != "" {
		m, err := resbundle.OpenDir(main)
		if err != nil {
			return nil, err
		}
		r.Main = m
	}

	module := c.String("module")
	var supply func() *resbundle.Bundle
	if module != "" {
		supply = func() *resbundle.Bundle {
			return moduleBundle(env, module)
		}
	}
	return r.Resolve(bundlePath, module, supply)
}

// moduleBundle returns the asset-backed bundle of module, or nil when
// the platform has no browsable asset store.
func moduleBundle(env *Env, module string) *resbundle.Bundle {
	adapter, err := env.Platform()
	if err != nil {
		return nil
	}
	store, err := adapter.AssetStore()
	if err != nil {
		env.Logger.Debug("no asset store for module bundle", "module", module, "error", err)
		return nil
	}
	browsable, ok := store.(resbundle.AssetStore)
	if !ok {
		return nil
	}
	return resbundle.New(resbundle.NewAssetProvider(browsable, path.Join(env.Config.Bundle.AssetPrefix, module)))
}
