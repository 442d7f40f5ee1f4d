package tlsroots

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaolacci/murmur3"
	"golang.org/x/time/rate"

	"github.com/yndnr/hostbridge/internal/telemetry/logger"
)

// Watcher rebuilds the trust bundle when a source directory changes.
//
// Package installs tend to touch many entries at once, so events are
// rate limited and a rebuild only happens when the fingerprint of the
// accepted entries actually moved.
type Watcher struct {
	agg      *Aggregator
	dirs     []string
	limiter  *rate.Limiter
	interval time.Duration
	settle   time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	fingerprint uint64
	rebuilds    int

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the logger for the watcher.
func WithLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithRebuildLimit caps rebuilds to one per interval.
func WithRebuildLimit(interval time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.interval = interval
	}
}

// WithSettle sets the pause between an event and the rebuild.
func WithSettle(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.settle = d
	}
}

// NewWatcher creates a watcher over dirs that rebuilds through agg. The
// current store contents are taken as already built.
func NewWatcher(agg *Aggregator, dirs []string, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		agg:      agg,
		dirs:     append([]string(nil), dirs...),
		interval: time.Second,
		settle:   100 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.limiter = rate.NewLimiter(rate.Every(w.interval), 1)
	w.logger = logger.OrDefault(w.logger)
	w.fingerprint = Fingerprint(w.dirs)
	return w
}

// Start watches until Stop is called. Missing directories are not
// watched; at least one must exist.
func (w *Watcher) Start() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}

	watched := 0
	for _, dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			w.logger.Debug("not watching certificate source", "dir", dir, "error", err)
			continue
		}
		watched++
	}
	if watched == 0 {
		fw.Close()
		return fmt.Errorf("tlsroots: none of %v can be watched", w.dirs)
	}

	w.logger.Info("trust store watcher started", "dirs", w.dirs)

	// A change that arrives while rate limited is retried once the
	// interval has passed, so the last event of a burst is never lost.
	var retry <-chan time.Time

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != EntryExt {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("certificate store changed", "file", event.Name, "op", event.Op.String())

			w.handle(&retry)

		case <-retry:
			retry = nil
			w.handle(&retry)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("trust store watcher error", "error", err)

		case <-w.done:
			return fw.Close()
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go func() {
		if err := w.Start(); err != nil {
			w.logger.Error("trust store watcher stopped with error", "error", err)
		}
	}()
}

// Stop stops watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) handle(retry *<-chan time.Time) {
	_, limited, err := w.refresh()
	if err != nil {
		w.logger.Error("trust bundle rebuild failed", "error", err)
		return
	}
	if limited && *retry == nil {
		*retry = time.After(w.interval)
	}
}

// Refresh rebuilds the bundle if the store changed since the last build
// and the rate limit allows it. It reports whether a rebuild happened.
func (w *Watcher) Refresh() (bool, error) {
	rebuilt, _, err := w.refresh()
	return rebuilt, err
}

func (w *Watcher) refresh() (rebuilt, limited bool, err error) {
	if !w.limiter.Allow() {
		return false, true, nil
	}
	if w.settle > 0 {
		time.Sleep(w.settle)
	}

	fp := Fingerprint(w.dirs)

	w.mu.Lock()
	defer w.mu.Unlock()
	if fp == w.fingerprint {
		return false, false, nil
	}

	res, err := w.agg.Build(w.dirs)
	if err != nil {
		return false, false, err
	}
	w.fingerprint = fp
	w.rebuilds++
	w.logger.Info("trust bundle rebuilt", "path", res.Path, "entries", len(res.Entries))
	return true, false, nil
}

// Rebuilds returns how many rebuilds the watcher triggered.
func (w *Watcher) Rebuilds() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rebuilds
}

// Fingerprint hashes the name, size and mtime of every "*.0" entry of
// dirs. Missing directories contribute nothing.
func Fingerprint(dirs []string) uint64 {
	h := murmur3.New64()
	var buf [8]byte
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		h.Write([]byte(dir))
		for _, e := range entries {
			if filepath.Ext(e.Name()) != EntryExt {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			h.Write([]byte(e.Name()))
			binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
			h.Write(buf[:])
			binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}
