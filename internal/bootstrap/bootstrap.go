// Package bootstrap prepares the process environment before any other
// runtime code runs: path variables, the trust bundle, the asset scheme
// and the host event loop.
//
// Initialize runs its steps once per Orchestrator. A failed run is
// reported to its caller and is not retried; later calls return nil.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yndnr/hostbridge/internal/assetproto"
	"github.com/yndnr/hostbridge/internal/envadapter"
	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
	"github.com/yndnr/hostbridge/internal/platform"
	"github.com/yndnr/hostbridge/internal/telemetry/logger"
	"github.com/yndnr/hostbridge/internal/telemetry/metric"
)

// ErrInvalidDir is returned when a host directory is unusable.
var ErrInvalidDir = errors.New("bootstrap: invalid directory")

// State is the process-wide initialization flag.
type State struct {
	mu          sync.Mutex
	initialized bool
}

// Initialized reports whether a run has finished.
func (s *State) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// Orchestrator sequences the bootstrap steps.
type Orchestrator struct {
	state State

	adapter    platform.Adapter
	env        *envadapter.Adapter
	aggregator *tlsroots.Aggregator
	registry   *assetproto.Registry
	transport  *http.Transport
	assetOpts  []assetproto.Option
	logger     *slog.Logger
	metrics    *metric.Registry
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithEnv sets the environment adapter.
func WithEnv(env *envadapter.Adapter) Option {
	return func(o *Orchestrator) {
		o.env = env
	}
}

// WithAggregator sets the trust bundle aggregator.
func WithAggregator(agg *tlsroots.Aggregator) Option {
	return func(o *Orchestrator) {
		o.aggregator = agg
	}
}

// WithTransport registers the asset scheme on t through reg instead of
// on http.DefaultTransport through the default registry.
func WithTransport(reg *assetproto.Registry, t *http.Transport) Option {
	return func(o *Orchestrator) {
		o.registry = reg
		o.transport = t
	}
}

// WithAssetOptions passes options to the asset handler.
func WithAssetOptions(opts ...assetproto.Option) Option {
	return func(o *Orchestrator) {
		o.assetOpts = append(o.assetOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithMetrics records run duration and outcome.
func WithMetrics(m *metric.Registry) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an orchestrator for adapter.
func New(adapter platform.Adapter, opts ...Option) *Orchestrator {
	o := &Orchestrator{adapter: adapter}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logger.OrDefault(o.logger)
	if o.env == nil {
		o.env = envadapter.New(envadapter.DefaultNames(), o.logger)
	}
	if o.aggregator == nil {
		o.aggregator = tlsroots.NewAggregator(
			tlsroots.WithAggregatorLogger(o.logger),
			tlsroots.WithMetrics(o.metrics),
		)
	}
	if o.registry == nil {
		o.registry = assetproto.Default()
	}
	return o
}

// Initialized reports whether Initialize has run.
func (o *Orchestrator) Initialized() bool {
	return o.state.Initialized()
}

// Aggregator returns the trust bundle aggregator.
func (o *Orchestrator) Aggregator() *tlsroots.Aggregator {
	return o.aggregator
}

// Initialize configures the process for filesDir and cacheDir. Only the
// first call does anything; concurrent first calls wait for it and then
// return nil. Completed steps are not rolled back on failure.
func (o *Orchestrator) Initialize(ctx context.Context, filesDir, cacheDir string) (err error) {
	o.state.mu.Lock()
	defer o.state.mu.Unlock()

	if o.state.initialized {
		return nil
	}

	start := time.Now()
	defer func() {
		o.state.initialized = true
		elapsed := time.Since(start)
		o.metrics.ObserveBootstrap(elapsed, err)
		if err != nil {
			o.logger.Error("bootstrap failed",
				"platform", o.adapter.Name(),
				"duration", elapsed,
				"error", err,
			)
			return
		}
		o.logger.Info("bootstrap complete",
			"platform", o.adapter.Name(),
			"restricted", o.adapter.Restricted(),
			"duration", elapsed,
		)
	}()

	return o.run(ctx, filesDir, cacheDir)
}

func (o *Orchestrator) run(ctx context.Context, filesDir, cacheDir string) error {
	if err := checkDir("files", filesDir); err != nil {
		return err
	}
	if err := checkDir("cache", cacheDir); err != nil {
		return err
	}

	if err := o.env.ConfigurePaths(filesDir, cacheDir); err != nil {
		return fmt.Errorf("bootstrap: configure paths: %w", err)
	}
	if err := o.env.ConfigureTimezone(o.adapter.TimeZone()); err != nil {
		return fmt.Errorf("bootstrap: configure timezone: %w", err)
	}

	if !o.adapter.Restricted() {
		return nil
	}

	if err := o.registerAssets(); err != nil {
		return fmt.Errorf("bootstrap: register asset scheme: %w", err)
	}
	if _, err := o.aggregator.BuildBundle(o.adapter.CertDirs()); err != nil {
		return fmt.Errorf("bootstrap: build trust bundle: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.adapter.SetupEventLoop(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	return nil
}

func (o *Orchestrator) registerAssets() error {
	opts := append([]assetproto.Option{
		assetproto.WithLogger(o.logger),
		assetproto.WithMetrics(o.metrics),
	}, o.assetOpts...)

	if o.transport == nil {
		t, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return errors.New("http.DefaultTransport is not an *http.Transport")
		}
		o.transport = t
	}
	return o.registry.Register(o.transport, o.adapter.AssetStore, opts...)
}

func checkDir(role, dir string) error {
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: %s dir %q is not absolute", ErrInvalidDir, role, dir)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s dir: %v", ErrInvalidDir, role, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s dir %s is not a directory", ErrInvalidDir, role, dir)
	}
	return nil
}
