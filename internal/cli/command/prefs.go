package command

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/yndnr/hostbridge/internal/envadapter"
	"github.com/yndnr/hostbridge/internal/prefs"
	"github.com/yndnr/hostbridge/internal/storage"
	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

// PrefsCommand returns the prefs subcommand group.
func PrefsCommand() *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Preference store commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "suite",
				Usage: "Preference suite (default prefs.suite)",
			},
			&cli.StringFlag{
				Name:  "defaults",
				Usage: "YAML file of registered defaults consulted by get and list",
			},
		},
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print one preference",
				ArgsUsage: "<key>",
				Action:    withPrefs(prefsGet),
			},
			{
				Name:      "set",
				Usage:     "Store a preference",
				ArgsUsage: "<key> <value>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Value type: string, int, double, bool, data",
						Value: "string",
					},
				},
				Action: withPrefs(prefsSet),
			},
			{
				Name:      "rm",
				Usage:     "Remove a preference",
				ArgsUsage: "<key>",
				Action:    withPrefs(prefsRemove),
			},
			{
				Name:  "list",
				Usage: "List stored preferences and registered defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "reveal",
						Usage: "Show values of keys that look secret",
					},
				},
				Action: withPrefs(prefsList),
			},
			{
				Name:   "reset",
				Usage:  "Remove every preference of the suite",
				Action: withPrefs(prefsReset),
			},
			{
				Name:      "backup",
				Usage:     "Write a backup of the preference database",
				ArgsUsage: "<file>",
				Action:    withKV(prefsBackup),
			},
			{
				Name:      "restore",
				Usage:     "Load a backup into the preference database",
				ArgsUsage: "<file>",
				Action:    withKV(prefsRestore),
			},
		},
	}
}

// prefsDir returns prefs.dir, or hostbridge/prefs under the
// application-support directory.
func prefsDir(env *Env) (string, error) {
	if env.Config.Prefs.Dir != "" {
		return env.Config.Prefs.Dir, nil
	}
	support, err := envadapter.New(envNames(env), env.Slog()).ApplicationSupportDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(support, "hostbridge", "prefs"), nil
}

func openKV(env *Env) (*storage.BadgerEngine, error) {
	cfg := storage.KVConfig{
		InMemory: env.Config.Prefs.InMemory,
		Badger:   storage.DefaultBadgerConfig(),
	}
	if env.Config.Prefs.GCInterval > 0 {
		cfg.Badger.GCInterval = env.Config.Prefs.GCInterval.String()
	}
	if !cfg.InMemory {
		dir, err := prefsDir(env)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, err
		}
		cfg.Dir = dir
	}
	return storage.NewBadgerEngine(cfg, env.Slog())
}

func withKV(fn func(c *cli.Context, env *Env, kv *storage.BadgerEngine) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		env := GetEnv(c)
		kv, err := openKV(env)
		if err != nil {
			return err
		}
		defer kv.Close()
		return fn(c, env, kv)
	}
}

func withPrefs(fn func(c *cli.Context, env *Env, b *prefs.Bridge) error) cli.ActionFunc {
	return withKV(func(c *cli.Context, env *Env, kv *storage.BadgerEngine) error {
		suite := c.String("suite")
		if suite == "" {
			suite = env.Config.Prefs.Suite
		}
		b := prefs.NewBridge(prefs.NewBadgerStore(kv, suite), prefs.WithLogger(env.Slog()))

		if path := c.String("defaults"); path != "" {
			defaults, err := readDefaults(path)
			if err != nil {
				return err
			}
			if err := b.Register(defaults); err != nil {
				return err
			}
		}
		return fn(c, env, b)
	})
}

func readDefaults(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var defaults map[string]any
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	return defaults, nil
}

type prefEntry struct {
	Key   string `json:"key" yaml:"key"`
	Kind  string `json:"kind" yaml:"kind"`
	Value any    `json:"value" yaml:"value"`
}

func entry(key string, v prefs.Value, reveal bool) prefEntry {
	e := prefEntry{Key: key, Kind: v.Kind().String(), Value: v.Any()}
	if !reveal && logger.IsSensitiveKey(key) {
		e.Value = "[REDACTED]"
	}
	return e
}

func oneArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s takes exactly one argument", name)
	}
	return c.Args().First(), nil
}

func prefsGet(c *cli.Context, env *Env, b *prefs.Bridge) error {
	key, err := oneArg(c, "prefs get")
	if err != nil {
		return err
	}
	v, err := b.Object(key)
	if err != nil {
		return err
	}
	if v.IsAbsent() {
		return fmt.Errorf("preference %q is not set", key)
	}
	return env.Print(entry(key, v, true))
}

func prefsSet(c *cli.Context, env *Env, b *prefs.Bridge) error {
	if c.NArg() != 2 {
		return errors.New("prefs set takes a key and a value")
	}
	kind, err := prefs.ParseKind(c.String("type"))
	if err != nil {
		return err
	}
	key := c.Args().Get(0)
	v, err := prefs.Parse(kind, c.Args().Get(1))
	if err != nil {
		return err
	}
	if err := b.Set(key, v); err != nil {
		return err
	}
	return env.Print(entry(key, v, false))
}

func prefsRemove(c *cli.Context, env *Env, b *prefs.Bridge) error {
	key, err := oneArg(c, "prefs rm")
	if err != nil {
		return err
	}
	return b.RemoveObject(key)
}

func prefsList(c *cli.Context, env *Env, b *prefs.Bridge) error {
	dict, err := b.DictionaryRepresentation()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(dict))
	for k := range dict {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]prefEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, entry(k, dict[k], c.Bool("reveal")))
	}
	return env.Print(entries)
}

func prefsReset(c *cli.Context, env *Env, b *prefs.Bridge) error {
	return b.Clear()
}

func prefsBackup(c *cli.Context, env *Env, kv *storage.BadgerEngine) error {
	path, err := oneArg(c, "prefs backup")
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := kv.Backup(c.Context, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func prefsRestore(c *cli.Context, env *Env, kv *storage.BadgerEngine) error {
	path, err := oneArg(c, "prefs restore")
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return kv.Restore(c.Context, f)
}
