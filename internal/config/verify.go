package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Verify validates the configuration.
func Verify(cfg *Config) error {
	if err := verifyPlatform(&cfg.Platform); err != nil {
		return err
	}
	if err := verifyPaths(&cfg.Paths); err != nil {
		return err
	}
	if err := verifyTrust(&cfg.Trust); err != nil {
		return err
	}
	if err := verifyPrefs(&cfg.Prefs); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...)
}

func verifyPlatform(cfg *PlatformSection) error {
	if !slices.Contains([]string{KindAuto, KindAndroid, KindDesktop}, cfg.Kind) {
		return invalid("platform.kind %q is not one of auto, android, desktop", cfg.Kind)
	}
	for _, dir := range cfg.CertDirs {
		if !filepath.IsAbs(dir) {
			return invalid("platform.cert_dirs entry %q is not absolute", dir)
		}
	}
	if cfg.AssetRoot != "" && !filepath.IsAbs(cfg.AssetRoot) {
		return invalid("platform.asset_root %q is not absolute", cfg.AssetRoot)
	}
	return nil
}

func verifyPaths(cfg *PathsSection) error {
	if cfg.FilesDir != "" && !filepath.IsAbs(cfg.FilesDir) {
		return invalid("paths.files_dir %q is not absolute", cfg.FilesDir)
	}
	if cfg.CacheDir != "" && !filepath.IsAbs(cfg.CacheDir) {
		return invalid("paths.cache_dir %q is not absolute", cfg.CacheDir)
	}
	return nil
}

func verifyTrust(cfg *TrustSection) error {
	if cfg.EnvVar == "" {
		return invalid("trust.env_var is required")
	}
	if cfg.RebuildInterval <= 0 {
		return invalid("trust.rebuild_interval must be positive")
	}
	return nil
}

func verifyPrefs(cfg *PrefsSection) error {
	if cfg.Suite == "" {
		return invalid("prefs.suite is required")
	}
	if cfg.GCInterval < 0 {
		return invalid("prefs.gc_interval must not be negative")
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.Level) {
		return invalid("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	if !slices.Contains([]string{"text", "json"}, cfg.Format) {
		return invalid("log.format %q is not one of text, json", cfg.Format)
	}
	return nil
}
