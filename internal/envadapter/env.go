// Package envadapter points a portable runtime's XDG-style path lookup at
// the sandboxed directories handed over by the host platform.
//
// Every variable is set only when absent. Callers (and tests) that export
// XDG_CACHE_HOME or HOME explicitly keep their value.
package envadapter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

// Default variable names.
const (
	EnvCacheHome = "XDG_CACHE_HOME"
	EnvDataHome  = "XDG_DATA_HOME"
	EnvHome      = "HOME"
	EnvTimezone  = "TZ"
)

// ErrInconsistentPaths is returned when the verification read after
// configuration cannot resolve the derived directories.
var ErrInconsistentPaths = errors.New("envadapter: path mapping inconsistent")

// Names selects which variables the adapter writes.
type Names struct {
	CacheHome string
	DataHome  string
	Home      string
}

// DefaultNames returns the XDG variables plus HOME.
func DefaultNames() Names {
	return Names{
		CacheHome: EnvCacheHome,
		DataHome:  EnvDataHome,
		Home:      EnvHome,
	}
}

// Adapter writes path-resolution variables into the process environment.
type Adapter struct {
	names  Names
	logger *slog.Logger
}

// New creates an adapter. Empty fields in names fall back to defaults.
func New(names Names, l *slog.Logger) *Adapter {
	def := DefaultNames()
	if names.CacheHome == "" {
		names.CacheHome = def.CacheHome
	}
	if names.DataHome == "" {
		names.DataHome = def.DataHome
	}
	if names.Home == "" {
		names.Home = def.Home
	}
	return &Adapter{names: names, logger: logger.OrDefault(l)}
}

// ConfigurePaths maps the cache and data variables to cacheDir and
// filesDir, and the home override to filesDir, then verifies that the
// derived application-support and cache directories resolve.
func (a *Adapter) ConfigurePaths(filesDir, cacheDir string) error {
	for _, kv := range [][2]string{
		{a.names.CacheHome, cacheDir},
		{a.names.DataHome, filesDir},
		{a.names.Home, filesDir},
	} {
		if _, err := SetIfAbsent(kv[0], kv[1]); err != nil {
			return err
		}
	}

	support, err := a.ApplicationSupportDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(support, 0o700); err != nil {
		return fmt.Errorf("%w: create application support dir %s: %v", ErrInconsistentPaths, support, err)
	}
	caches, err := a.CachesDir()
	if err != nil {
		return err
	}

	a.logger.Debug("paths configured",
		"application_support", support,
		"caches", caches,
	)
	return nil
}

// ApplicationSupportDir resolves the data home the same way the runtime
// does: the data variable if set, else $HOME/.local/share.
func (a *Adapter) ApplicationSupportDir() (string, error) {
	if dir := os.Getenv(a.names.DataHome); dir != "" {
		if !filepath.IsAbs(dir) {
			return "", fmt.Errorf("%w: %s=%q is not absolute", ErrInconsistentPaths, a.names.DataHome, dir)
		}
		return dir, nil
	}
	home := os.Getenv(a.names.Home)
	if home == "" {
		return "", fmt.Errorf("%w: neither %s nor %s is set", ErrInconsistentPaths, a.names.DataHome, a.names.Home)
	}
	return filepath.Join(home, ".local", "share"), nil
}

// CachesDir resolves the cache home: the cache variable if set, else
// $HOME/.cache.
func (a *Adapter) CachesDir() (string, error) {
	if dir := os.Getenv(a.names.CacheHome); dir != "" {
		if !filepath.IsAbs(dir) {
			return "", fmt.Errorf("%w: %s=%q is not absolute", ErrInconsistentPaths, a.names.CacheHome, dir)
		}
		return dir, nil
	}
	home := os.Getenv(a.names.Home)
	if home == "" {
		return "", fmt.Errorf("%w: neither %s nor %s is set", ErrInconsistentPaths, a.names.CacheHome, a.names.Home)
	}
	return filepath.Join(home, ".cache"), nil
}

// ConfigureTimezone exports TZ when it is absent and name is a loadable
// zone, and repoints time.Local so the running process agrees with
// children that inherit the environment.
func (a *Adapter) ConfigureTimezone(name string) error {
	if name == "" {
		return nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("envadapter: load timezone %q: %w", name, err)
	}
	set, err := SetIfAbsent(EnvTimezone, name)
	if err != nil {
		return err
	}
	if set {
		time.Local = loc
		a.logger.Debug("timezone configured", "tz", name)
	}
	return nil
}

// SetIfAbsent sets key to value unless key is already present in the
// environment, even with an empty value. It reports whether it wrote.
func SetIfAbsent(key, value string) (bool, error) {
	if _, ok := os.LookupEnv(key); ok {
		return false, nil
	}
	if err := os.Setenv(key, value); err != nil {
		return false, fmt.Errorf("envadapter: set %s: %w", key, err)
	}
	return true, nil
}
