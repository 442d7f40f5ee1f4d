package config

import (
	"slices"
	"time"

	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
)

// Platform kinds.
const (
	KindAuto    = "auto"
	KindAndroid = "android"
	KindDesktop = "desktop"
)

// Default configuration values.
const (
	DefaultSuite           = "standard"
	DefaultRebuildInterval = time.Second
	DefaultGCInterval      = 10 * time.Minute
	DefaultMetricsAddr     = "127.0.0.1:9464"
	DefaultHomeVar         = "HOME"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Platform: PlatformSection{
			Kind:     KindAuto,
			CertDirs: slices.Clone(tlsroots.DefaultSourceDirs),
		},
		Paths: PathsSection{
			HomeVar: DefaultHomeVar,
		},
		Trust: TrustSection{
			EnvVar:          tlsroots.DefaultEnvVar,
			Watch:           true,
			RebuildInterval: DefaultRebuildInterval,
		},
		Prefs: PrefsSection{
			Suite:      DefaultSuite,
			GCInterval: DefaultGCInterval,
		},
		Metrics: MetricsSection{
			Addr: DefaultMetricsAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
