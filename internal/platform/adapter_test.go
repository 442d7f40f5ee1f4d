package platform

import (
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/hostbridge/internal/config"
	"github.com/yndnr/hostbridge/internal/infra/tlsroots"
)

func TestSelect(t *testing.T) {
	a, err := Select(config.PlatformSection{Kind: config.KindAndroid})
	require.NoError(t, err)
	assert.True(t, a.Restricted())
	assert.Equal(t, tlsroots.DefaultSourceDirs, a.CertDirs())

	a, err = Select(config.PlatformSection{Kind: config.KindDesktop, TimeZone: "UTC"})
	require.NoError(t, err)
	assert.False(t, a.Restricted())
	assert.Empty(t, a.CertDirs())
	assert.Equal(t, "UTC", a.TimeZone())

	a, err = Select(config.PlatformSection{Kind: config.KindAuto})
	require.NoError(t, err)
	assert.Equal(t, runtime.GOOS == "android", a.Restricted())

	_, err = Select(config.PlatformSection{Kind: "beos"})
	assert.Error(t, err)
}

func TestRestricted_CertDirsAreCopies(t *testing.T) {
	r := NewRestricted([]string{"/a"}, "", "")
	dirs := r.CertDirs()
	dirs[0] = "/b"
	assert.Equal(t, []string{"/a"}, r.CertDirs())
}

func TestAssetStore(t *testing.T) {
	root := t.TempDir()

	store, err := NewRestricted(nil, root, "").AssetStore()
	require.NoError(t, err)
	assert.NotNil(t, store)

	_, err = NewRestricted(nil, filepath.Join(root, "missing"), "").AssetStore()
	assert.Error(t, err)

	_, err = NewRestricted(nil, "", "").AssetStore()
	assert.ErrorIs(t, err, ErrNoAssetStore)

	_, err = (&Desktop{}).AssetStore()
	assert.ErrorIs(t, err, ErrNoAssetStore)

	store, err = (&Desktop{AssetRoot: root}).AssetStore()
	require.NoError(t, err)
	assert.NotNil(t, store)
}

func TestRestricted_SetupEventLoop(t *testing.T) {
	r := NewRestricted(nil, "", "")
	require.NoError(t, r.SetupEventLoop(context.Background()))

	boom := errors.New("looper unavailable")
	r.Loop = func(context.Context) error { return boom }
	assert.ErrorIs(t, r.SetupEventLoop(context.Background()), boom)
}
