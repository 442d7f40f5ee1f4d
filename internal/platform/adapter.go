// Package platform describes what the host platform provides to the
// bootstrap: whether it is restricted, where its certificate stores and
// bundled assets are, and how the host event loop is set up.
package platform

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"

	"github.com/yndnr/hostbridge/internal/assets"
	"github.com/yndnr/hostbridge/internal/config"
	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
)

// ErrNoAssetStore is returned by adapters without bundled assets.
var ErrNoAssetStore = errors.New("platform: no asset store")

// Adapter is the host platform capability.
type Adapter interface {
	Name() string

	// Restricted reports whether the platform lacks a conventional
	// filesystem layout and system trust store.
	Restricted() bool

	// CertDirs are the certificate store directories to aggregate.
	CertDirs() []string

	// AssetStore resolves the application asset store.
	AssetStore() (assets.Store, error)

	// TimeZone is the host zone name, or "" when TZ should not be touched.
	TimeZone() string

	// SetupEventLoop prepares the host event loop for the calling runtime.
	SetupEventLoop(ctx context.Context) error
}

// Desktop is a conventional platform. Nothing needs aggregating and the
// asset store is optional.
type Desktop struct {
	AssetRoot string
	Zone      string
}

func (d *Desktop) Name() string       { return config.KindDesktop }
func (d *Desktop) Restricted() bool   { return false }
func (d *Desktop) CertDirs() []string { return nil }
func (d *Desktop) TimeZone() string   { return d.Zone }

// AssetStore opens AssetRoot when one is configured.
func (d *Desktop) AssetStore() (assets.Store, error) {
	if d.AssetRoot == "" {
		return nil, ErrNoAssetStore
	}
	return assets.NewDirStore(d.AssetRoot)
}

func (d *Desktop) SetupEventLoop(context.Context) error { return nil }

// Restricted is an Android-like platform.
type Restricted struct {
	Dirs      []string
	AssetRoot string
	Zone      string

	// Loop is the host hook run by SetupEventLoop. Nil does nothing.
	Loop func(ctx context.Context) error
}

// NewRestricted returns a restricted adapter. Empty dirs means the
// default certificate stores.
func NewRestricted(dirs []string, assetRoot, zone string) *Restricted {
	if len(dirs) == 0 {
		dirs = tlsroots.DefaultSourceDirs
	}
	return &Restricted{
		Dirs:      slices.Clone(dirs),
		AssetRoot: assetRoot,
		Zone:      zone,
	}
}

func (r *Restricted) Name() string       { return config.KindAndroid }
func (r *Restricted) Restricted() bool   { return true }
func (r *Restricted) CertDirs() []string { return slices.Clone(r.Dirs) }
func (r *Restricted) TimeZone() string   { return r.Zone }

// AssetStore opens the asset root, which must exist.
func (r *Restricted) AssetStore() (assets.Store, error) {
	if r.AssetRoot == "" {
		return nil, ErrNoAssetStore
	}
	return assets.NewDirStore(r.AssetRoot)
}

func (r *Restricted) SetupEventLoop(ctx context.Context) error {
	if r.Loop == nil {
		return nil
	}
	if err := r.Loop(ctx); err != nil {
		return fmt.Errorf("platform: event loop: %w", err)
	}
	return nil
}

// Select returns the adapter for cfg.Kind. Auto picks Restricted on
// android builds.
func Select(cfg config.PlatformSection) (Adapter, error) {
	kind := cfg.Kind
	if kind == "" || kind == config.KindAuto {
		kind = config.KindDesktop
		if runtime.GOOS == "android" {
			kind = config.KindAndroid
		}
	}

	switch kind {
	case config.KindAndroid:
		return NewRestricted(cfg.CertDirs, cfg.AssetRoot, cfg.TimeZone), nil
	case config.KindDesktop:
		return &Desktop{AssetRoot: cfg.AssetRoot, Zone: cfg.TimeZone}, nil
	default:
		return nil, fmt.Errorf("platform: unknown kind %q", cfg.Kind)
	}
}
