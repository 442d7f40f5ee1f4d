package envadapter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestConfigurePaths_SetsAbsentVariables(t *testing.T) {
	unsetEnv(t, EnvCacheHome)
	unsetEnv(t, EnvDataHome)
	unsetEnv(t, EnvHome)

	files := t.TempDir()
	cache := t.TempDir()

	a := New(Names{}, logger.Discard())
	require.NoError(t, a.ConfigurePaths(files, cache))

	assert.Equal(t, cache, os.Getenv(EnvCacheHome))
	assert.Equal(t, files, os.Getenv(EnvDataHome))
	assert.Equal(t, files, os.Getenv(EnvHome))

	support, err := a.ApplicationSupportDir()
	require.NoError(t, err)
	assert.Equal(t, files, support)
	assert.DirExists(t, support)

	caches, err := a.CachesDir()
	require.NoError(t, err)
	assert.Equal(t, cache, caches)
}

func TestConfigurePaths_NeverOverwrites(t *testing.T) {
	t.Setenv(EnvCacheHome, "/custom/cache")
	data := t.TempDir()
	t.Setenv(EnvDataHome, data)
	t.Setenv(EnvHome, "/custom/home")

	a := New(Names{}, logger.Discard())
	require.NoError(t, a.ConfigurePaths(t.TempDir(), t.TempDir()))

	assert.Equal(t, "/custom/cache", os.Getenv(EnvCacheHome))
	assert.Equal(t, data, os.Getenv(EnvDataHome))
	assert.Equal(t, "/custom/home", os.Getenv(EnvHome))
}

func TestConfigurePaths_EmptyPresetIsKept(t *testing.T) {
	// Present-but-empty still counts as explicitly set.
	t.Setenv(EnvCacheHome, "")
	unsetEnv(t, EnvDataHome)
	unsetEnv(t, EnvHome)

	files := t.TempDir()
	a := New(Names{}, logger.Discard())
	require.NoError(t, a.ConfigurePaths(files, t.TempDir()))

	v, ok := os.LookupEnv(EnvCacheHome)
	assert.True(t, ok)
	assert.Empty(t, v)

	// Falls back to HOME, which now points at files.
	caches, err := a.CachesDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(files, ".cache"), caches)
}

func TestConfigurePaths_VerificationFailure(t *testing.T) {
	t.Setenv(EnvDataHome, "relative/data")
	unsetEnv(t, EnvCacheHome)
	unsetEnv(t, EnvHome)

	a := New(Names{}, logger.Discard())
	err := a.ConfigurePaths(t.TempDir(), t.TempDir())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInconsistentPaths))
}

func TestConfigurePaths_UnwritableSupportDir(t *testing.T) {
	unsetEnv(t, EnvCacheHome)
	unsetEnv(t, EnvHome)

	// A regular file where the data directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))
	t.Setenv(EnvDataHome, filepath.Join(blocker, "sub"))

	a := New(Names{}, logger.Discard())
	err := a.ConfigurePaths(t.TempDir(), t.TempDir())
	assert.ErrorIs(t, err, ErrInconsistentPaths)
}

func TestConfigurePaths_CustomNames(t *testing.T) {
	names := Names{CacheHome: "HB_TEST_CACHE", DataHome: "HB_TEST_DATA", Home: "HB_TEST_HOME"}
	unsetEnv(t, names.CacheHome)
	unsetEnv(t, names.DataHome)
	unsetEnv(t, names.Home)

	files, cache := t.TempDir(), t.TempDir()
	require.NoError(t, New(names, logger.Discard()).ConfigurePaths(files, cache))

	assert.Equal(t, cache, os.Getenv("HB_TEST_CACHE"))
	assert.Equal(t, files, os.Getenv("HB_TEST_DATA"))
	assert.Equal(t, files, os.Getenv("HB_TEST_HOME"))
}

func TestSetIfAbsent(t *testing.T) {
	unsetEnv(t, "HB_TEST_VAR")

	wrote, err := SetIfAbsent("HB_TEST_VAR", "first")
	require.NoError(t, err)
	assert.True(t, wrote)

	wrote, err = SetIfAbsent("HB_TEST_VAR", "second")
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Equal(t, "first", os.Getenv("HB_TEST_VAR"))
}

func TestConfigureTimezone(t *testing.T) {
	orig := time.Local
	t.Cleanup(func() { time.Local = orig })

	a := New(Names{}, logger.Discard())

	t.Run("empty name is a no-op", func(t *testing.T) {
		unsetEnv(t, EnvTimezone)
		require.NoError(t, a.ConfigureTimezone(""))
		_, ok := os.LookupEnv(EnvTimezone)
		assert.False(t, ok)
	})

	t.Run("sets absent TZ", func(t *testing.T) {
		unsetEnv(t, EnvTimezone)
		require.NoError(t, a.ConfigureTimezone("UTC"))
		assert.Equal(t, "UTC", os.Getenv(EnvTimezone))
		assert.Equal(t, "UTC", time.Local.String())
	})

	t.Run("keeps preset TZ", func(t *testing.T) {
		t.Setenv(EnvTimezone, "Europe/Berlin")
		require.NoError(t, a.ConfigureTimezone("UTC"))
		assert.Equal(t, "Europe/Berlin", os.Getenv(EnvTimezone))
	})

	t.Run("unknown zone", func(t *testing.T) {
		assert.Error(t, a.ConfigureTimezone("Not/AZone"))
	})
}
