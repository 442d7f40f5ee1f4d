package config

import "time"

// Config is the root configuration for hostbridge.
type Config struct {
	Platform PlatformSection `koanf:"platform"`
	Paths    PathsSection    `koanf:"paths"`
	Trust    TrustSection    `koanf:"trust"`
	Prefs    PrefsSection    `koanf:"prefs"`
	Bundle   BundleSection   `koanf:"bundle"`
	Metrics  MetricsSection  `koanf:"metrics"`
	Log      LogSection      `koanf:"log"`
}

// PlatformSection selects the platform adapter.
type PlatformSection struct {
	// Kind is auto, android or desktop.
	Kind string `koanf:"kind"`

	// AssetRoot is the directory holding the unpacked application assets.
	AssetRoot string `koanf:"asset_root"`

	// CertDirs are the certificate stores aggregated on restricted
	// platforms.
	CertDirs []string `koanf:"cert_dirs"`

	// TimeZone is exported as TZ when TZ is unset. Empty leaves it alone.
	TimeZone string `koanf:"timezone"`
}

// PathsSection gives the host-provided writable directories. Both must be
// absolute when set.
type PathsSection struct {
	FilesDir string `koanf:"files_dir"`
	CacheDir string `koanf:"cache_dir"`

	// HomeVar names the home-override variable. Default HOME.
	HomeVar string `koanf:"home_var"`
}

// TrustSection configures the trust bundle.
type TrustSection struct {
	EnvVar string `koanf:"env_var"`

	// Target is a fixed bundle path. Empty means a fresh file in the
	// temporary directory.
	Target string `koanf:"target"`

	// Watch rebuilds the bundle when the certificate stores change.
	Watch           bool          `koanf:"watch"`
	RebuildInterval time.Duration `koanf:"rebuild_interval"`
}

// PrefsSection configures the preference store.
type PrefsSection struct {
	// Dir is the badger directory. Empty derives it from the
	// application-support directory.
	Dir        string        `koanf:"dir"`
	Suite      string        `koanf:"suite"`
	InMemory   bool          `koanf:"in_memory"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// BundleSection locates resource bundles.
type BundleSection struct {
	// Main is the main application bundle directory.
	Main string `koanf:"main"`

	// AssetPrefix is where module resources live inside the asset store.
	AssetPrefix string `koanf:"asset_prefix"`
}

// MetricsSection configures the metrics endpoint served by serve.
type MetricsSection struct {
	Addr string `koanf:"addr"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
