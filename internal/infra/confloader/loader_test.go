package confloader

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	Trust struct {
		EnvVar          string        `koanf:"env_var"`
		Watch           bool          `koanf:"watch"`
		RebuildInterval time.Duration `koanf:"rebuild_interval"`
	} `koanf:"trust"`
	Platform struct {
		Kind     string   `koanf:"kind"`
		CertDirs []string `koanf:"cert_dirs"`
	} `koanf:"platform"`
	Log struct {
		Level string `koanf:"level"`
	} `koanf:"log"`
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hostbridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewLoader(t *testing.T) {
	l := NewLoader()
	if l.envPrefix != DefaultEnvPrefix {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, DefaultEnvPrefix)
	}

	l = NewLoader(WithEnvPrefix("TEST_"), WithConfigFile("/etc/hostbridge.yaml"))
	if l.envPrefix != "TEST_" {
		t.Errorf("envPrefix = %q, want %q", l.envPrefix, "TEST_")
	}
	if l.FilePath() != "/etc/hostbridge.yaml" {
		t.Errorf("FilePath() = %q", l.FilePath())
	}
}

func TestLoader_LoadFile(t *testing.T) {
	path := writeConfig(t, `
trust:
  env_var: CUSTOM_CERT_FILE
  watch: true
  rebuild_interval: 5s
platform:
  cert_dirs: ["/a", "/b"]
`)

	l := NewLoader()
	if err := l.LoadFile(path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if got := l.GetString("trust.env_var"); got != "CUSTOM_CERT_FILE" {
		t.Errorf("trust.env_var = %q", got)
	}
	if !l.GetBool("trust.watch") {
		t.Error("trust.watch should be true")
	}
}

func TestLoader_LoadFile_Errors(t *testing.T) {
	l := NewLoader()
	if err := l.LoadFile(""); err != nil {
		t.Errorf("LoadFile(\"\") error = %v", err)
	}
	if err := l.LoadFile("/nonexistent/hostbridge.yaml"); err == nil {
		t.Error("LoadFile() should fail for a missing file")
	}
	if err := l.LoadFile(writeConfig(t, "trust: [unclosed")); err == nil {
		t.Error("LoadFile() should fail for invalid YAML")
	}
}

func TestLoader_LoadEnv_NestedKeys(t *testing.T) {
	t.Setenv("HOSTBRIDGE_TRUST__ENV_VAR", "FROM_ENV")
	t.Setenv("HOSTBRIDGE_LOG__LEVEL", "debug")

	l := NewLoader()
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := l.GetString("trust.env_var"); got != "FROM_ENV" {
		t.Errorf("trust.env_var = %q, want FROM_ENV", got)
	}
	if got := l.GetString("log.level"); got != "debug" {
		t.Errorf("log.level = %q, want debug", got)
	}
}

func TestLoader_LoadEnv_CustomPrefix(t *testing.T) {
	t.Setenv("MYAPP_LOG__LEVEL", "warn")

	l := NewLoader(WithEnvPrefix("MYAPP_"))
	if err := l.LoadEnv(); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := l.GetString("log.level"); got != "warn" {
		t.Errorf("log.level = %q, want warn", got)
	}
}

func TestLoader_Load_Priority(t *testing.T) {
	path := writeConfig(t, `
trust:
  env_var: FROM_FILE
log:
  level: info
platform:
  kind: desktop
`)
	t.Setenv("HOSTBRIDGE_TRUST__ENV_VAR", "FROM_ENV")
	t.Setenv("HOSTBRIDGE_LOG__LEVEL", "warn")

	l := NewLoader(
		WithConfigFile(path),
		WithOverrides(map[string]any{
			"log.level":     "error",
			"platform.kind": "",
		}),
	)

	var cfg testConfig
	cfg.Trust.RebuildInterval = time.Second
	if err := l.Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Trust.EnvVar != "FROM_ENV" {
		t.Errorf("EnvVar = %q, want FROM_ENV (env overrides file)", cfg.Trust.EnvVar)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Level = %q, want error (overrides win)", cfg.Log.Level)
	}
	if cfg.Platform.Kind != "desktop" {
		t.Errorf("Kind = %q, want desktop (empty override ignored)", cfg.Platform.Kind)
	}
	if cfg.Trust.RebuildInterval != time.Second {
		t.Errorf("RebuildInterval = %v, want default kept", cfg.Trust.RebuildInterval)
	}
	if !l.IsLoaded() {
		t.Error("IsLoaded() should be true after Load()")
	}
}

func TestLoader_Load_DecodesTypes(t *testing.T) {
	path := writeConfig(t, `
trust:
  rebuild_interval: 250ms
platform:
  cert_dirs: ["/a", "/b"]
`)

	var cfg testConfig
	if err := NewLoader(WithConfigFile(path)).Load(&cfg); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Trust.RebuildInterval != 250*time.Millisecond {
		t.Errorf("RebuildInterval = %v", cfg.Trust.RebuildInterval)
	}
	if len(cfg.Platform.CertDirs) != 2 || cfg.Platform.CertDirs[1] != "/b" {
		t.Errorf("CertDirs = %v", cfg.Platform.CertDirs)
	}
}

func TestLoader_Load_MissingFile(t *testing.T) {
	var cfg testConfig
	err := NewLoader(WithConfigFile("/nonexistent/hostbridge.yaml")).Load(&cfg)
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
}

func TestLoader_LoadMap(t *testing.T) {
	l := NewLoader()
	if err := l.LoadMap(map[string]any{"log.level": "debug", "trust.watch": true}); err != nil {
		t.Fatalf("LoadMap() error = %v", err)
	}
	if got := l.GetString("log.level"); got != "debug" {
		t.Errorf("log.level = %q", got)
	}
	if !l.GetBool("trust.watch") {
		t.Error("trust.watch should be true")
	}
	if len(l.Keys()) != 2 {
		t.Errorf("Keys() = %v", l.Keys())
	}
}

func TestMapProvider_ReadBytes(t *testing.T) {
	if _, err := mapProvider(nil).ReadBytes(); err != ErrReadBytesNotSupported {
		t.Errorf("ReadBytes() error = %v", err)
	}
}
