package storage

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

func newTestEngine(t *testing.T) *BadgerEngine {
	t.Helper()

	cfg := DefaultKVConfig(t.TempDir())
	cfg.Badger.GCInterval = "1h" // Keep auto GC out of the way

	engine, err := NewBadgerEngine(cfg, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestBadgerEngine_BasicOperations(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		if err := engine.Set(ctx, []byte("k"), []byte("v")); err != nil {
			t.Fatal(err)
		}
		got, err := engine.Get(ctx, []byte("k"))
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "v" {
			t.Errorf("expected v, got %s", got)
		}
	})

	t.Run("Get non-existent key", func(t *testing.T) {
		_, err := engine.Get(ctx, []byte("non-existent"))
		if !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := engine.Set(ctx, []byte("gone"), []byte("x")); err != nil {
			t.Fatal(err)
		}
		if err := engine.Delete(ctx, []byte("gone")); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.Get(ctx, []byte("gone")); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected ErrKeyNotFound after delete, got %v", err)
		}
	})

	t.Run("Delete absent key", func(t *testing.T) {
		if err := engine.Delete(ctx, []byte("never-set")); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestBadgerEngine_ScanAndDropPrefix(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for k, v := range map[string]string{
		"prefs/a/one": "1",
		"prefs/a/two": "2",
		"prefs/b/one": "3",
		"other":       "4",
	} {
		if err := engine.Set(ctx, []byte(k), []byte(v)); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("Scan with prefix", func(t *testing.T) {
		var keys []string
		err := engine.Scan(ctx, []byte("prefs/a/"), func(key, _ []byte) bool {
			keys = append(keys, string(key))
			return true
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) != 2 || keys[0] != "prefs/a/one" || keys[1] != "prefs/a/two" {
			t.Errorf("unexpected keys %v", keys)
		}
	})

	t.Run("Scan with early stop", func(t *testing.T) {
		count := 0
		err := engine.Scan(ctx, []byte("prefs/"), func(_, _ []byte) bool {
			count++
			return count < 2
		})
		if err != nil {
			t.Fatal(err)
		}
		if count != 2 {
			t.Errorf("expected 2 iterations, got %d", count)
		}
	})

	t.Run("DropPrefix", func(t *testing.T) {
		if err := engine.DropPrefix(ctx, []byte("prefs/a/")); err != nil {
			t.Fatal(err)
		}
		if _, err := engine.Get(ctx, []byte("prefs/a/one")); !errors.Is(err, ErrKeyNotFound) {
			t.Errorf("expected prefs/a/one to be dropped, got %v", err)
		}
		if _, err := engine.Get(ctx, []byte("prefs/b/one")); err != nil {
			t.Errorf("expected prefs/b/one to survive, got %v", err)
		}
	})
}

func TestBadgerEngine_BackupRestore(t *testing.T) {
	src := newTestEngine(t)
	dst := newTestEngine(t)
	ctx := context.Background()

	if err := src.Set(ctx, []byte("key1"), []byte("value1")); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := src.Backup(ctx, &buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected non-empty backup")
	}

	if err := dst.Restore(ctx, &buf); err != nil {
		t.Fatal(err)
	}
	got, err := dst.Get(ctx, []byte("key1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "value1" {
		t.Errorf("expected value1, got %s", got)
	}
}

func TestBadgerEngine_InMemory(t *testing.T) {
	engine, err := NewBadgerEngine(KVConfig{InMemory: true, Badger: DefaultBadgerConfig()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	ctx := context.Background()
	if err := engine.Set(ctx, []byte("k"), []byte("v")); err != nil {
		t.Fatal(err)
	}
	if rounds, err := engine.GC(ctx); err != nil || rounds != 0 {
		t.Errorf("expected GC no-op in memory, got %d, %v", rounds, err)
	}
}

func TestBadgerEngine_RequiresDir(t *testing.T) {
	if _, err := NewBadgerEngine(KVConfig{}, nil); err == nil {
		t.Error("expected error without dir")
	}
}

func TestBadgerEngine_GCAndStats(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if err := engine.Set(ctx, []byte{byte(i)}, make([]byte, 512)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := engine.GC(ctx); err != nil {
		t.Fatal(err)
	}

	stats, err := engine.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.GCRuns != 1 {
		t.Errorf("expected 1 gc run, got %d", stats.GCRuns)
	}
	if stats.LastGCTime == 0 {
		t.Error("expected last gc time to be recorded")
	}
}

func TestBadgerEngine_RegisterMetrics(t *testing.T) {
	engine := newTestEngine(t)
	reg := prometheus.NewRegistry()
	engine.RegisterMetrics(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"hostbridge_badger_lsm_size_bytes",
		"hostbridge_badger_value_log_size_bytes",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}

func TestBadgerEngine_Closed(t *testing.T) {
	cfg := DefaultKVConfig(t.TempDir())
	engine, err := NewBadgerEngine(cfg, logger.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}

	if err := engine.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed on second close, got %v", err)
	}
	if _, err := engine.Get(context.Background(), []byte("k")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
