// Package tlsroots turns a device certificate store into trust material a
// generic TLS stack can consume.
//
// Android keeps one root per file, named "<subject-hash>.0", across a
// couple of directories. Aggregator concatenates those files verbatim into
// a single PEM bundle and publishes its location through SSL_CERT_FILE,
// which crypto/x509 and libcurl both honour. Pool loads a published bundle
// back into an x509.CertPool, and Watcher rebuilds the bundle when the
// store changes.
package tlsroots

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/hostbridge/internal/telemetry/logger"
	"github.com/yndnr/hostbridge/internal/telemetry/metric"
)

const (
	// DefaultEnvVar is where the bundle path is published.
	DefaultEnvVar = "SSL_CERT_FILE"

	// EntryExt is the extension carried by certificate store entries.
	EntryExt = ".0"
)

// DefaultSourceDirs are the system and conscrypt certificate stores.
var DefaultSourceDirs = []string{
	"/system/etc/security/cacerts",
	"/apex/com.android.conscrypt/cacerts",
}

// Result describes one aggregation run.
type Result struct {
	// Path is the bundle file.
	Path string
	// Entries lists the accepted source files in bundle order.
	Entries []string
	// Skipped lists candidate entries that failed to read.
	Skipped []string
}

// Aggregator builds trust bundles. It serializes its own runs so the
// watcher and an explicit build never write concurrently.
type Aggregator struct {
	mu      sync.Mutex
	envVar  string
	target  string
	tempDir string
	last    string
	now     func() time.Time
	logger  *slog.Logger
	metrics *metric.Registry
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithEnvVar overrides the variable the bundle path is published in.
func WithEnvVar(name string) AggregatorOption {
	return func(a *Aggregator) {
		a.envVar = name
	}
}

// WithTarget writes every bundle to a fixed path instead of a fresh
// cacerts-<ulid>.pem in the temp directory.
func WithTarget(path string) AggregatorOption {
	return func(a *Aggregator) {
		a.target = path
	}
}

// WithTempDir sets the directory for generated bundle names.
func WithTempDir(dir string) AggregatorOption {
	return func(a *Aggregator) {
		a.tempDir = dir
	}
}

// WithClock sets the time source used for the header.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithMetrics records bundle sizes and build outcomes.
func WithMetrics(m *metric.Registry) AggregatorOption {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// NewAggregator creates an aggregator.
func NewAggregator(opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		envVar: DefaultEnvVar,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tempDir == "" {
		a.tempDir = os.TempDir()
	}
	a.logger = logger.OrDefault(a.logger)
	return a
}

// EnvVar returns the variable the bundle path is published in.
func (a *Aggregator) EnvVar() string {
	return a.envVar
}

// Last returns the path of the most recent bundle, or "".
func (a *Aggregator) Last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// BuildBundle aggregates sourceDirs and returns the bundle path.
func (a *Aggregator) BuildBundle(sourceDirs []string) (string, error) {
	res, err := a.Build(sourceDirs)
	if err != nil {
		return "", err
	}
	return res.Path, nil
}

// Build aggregates every readable regular "*.0" file of sourceDirs, in
// order, into a fresh bundle behind a generated header, then publishes the
// bundle path. Missing directories and unreadable entries are skipped;
// only failures on the bundle file itself are returned. The previous
// bundle is removed only after the new path has been published, so a
// failed rebuild leaves the old one in place.
func (a *Aggregator) Build(sourceDirs []string) (res *Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	defer func() {
		n := 0
		if res != nil {
			n = len(res.Entries)
		}
		a.metrics.TrustBundleBuilt(n, err)
	}()

	path := a.target
	if path == "" {
		path = filepath.Join(a.tempDir, "cacerts-"+ulid.Make().String()+".pem")
	}

	if err := a.removeStale(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tlsroots: create bundle %s: %w", path, err)
	}

	res = &Result{Path: path}
	if err := a.write(f, sourceDirs, res); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("tlsroots: close bundle %s: %w", path, err)
	}

	if err := os.Setenv(a.envVar, path); err != nil {
		return nil, fmt.Errorf("tlsroots: publish %s: %w", a.envVar, err)
	}
	a.retire(path)
	a.last = path

	a.logger.Info("trust bundle built",
		"path", path,
		"entries", len(res.Entries),
		"skipped", len(res.Skipped),
		"env", a.envVar,
	)
	return res, nil
}

func (a *Aggregator) removeStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tlsroots: remove stale bundle %s: %w", path, err)
	}
	return nil
}

// retire removes the previously published bundle once path has replaced
// it. Failure only leaves a stray file behind.
func (a *Aggregator) retire(path string) {
	if a.last == "" || a.last == path {
		return
	}
	if err := os.Remove(a.last); err != nil && !errors.Is(err, fs.ErrNotExist) {
		a.logger.Warn("could not remove previous trust bundle", "path", a.last, "error", err)
	}
}

func (a *Aggregator) write(f *os.File, sourceDirs []string, res *Result) error {
	w := bufio.NewWriter(f)

	if _, err := w.WriteString(Header(a.now(), sourceDirs)); err != nil {
		return fmt.Errorf("tlsroots: write header: %w", err)
	}

	for _, dir := range sourceDirs {
		for _, entry := range a.candidates(dir) {
			data, err := os.ReadFile(entry)
			if err != nil {
				a.logger.Warn("skipping unreadable certificate entry", "path", entry, "error", err)
				res.Skipped = append(res.Skipped, entry)
				continue
			}
			if _, err := w.Write(data); err != nil {
				return fmt.Errorf("tlsroots: write entry %s: %w", entry, err)
			}
			res.Entries = append(res.Entries, entry)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("tlsroots: flush bundle: %w", err)
	}
	return nil
}

// candidates lists the accepted entries of dir in directory order.
// os.ReadDir sorts by name, so output is deterministic for a given store.
func (a *Aggregator) candidates(dir string) []string {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		a.logger.Debug("skipping certificate source", "dir", dir, "reason", "not a directory")
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		a.logger.Warn("skipping unlistable certificate source", "dir", dir, "error", err)
		return nil
	}

	var out []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) != EntryExt {
			continue
		}
		p := filepath.Join(dir, e.Name())
		// Stat follows symlinks; a link to a regular file is accepted.
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if !readable(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Header renders the comment block written once at the top of a bundle.
func Header(at time.Time, sourceDirs []string) string {
	quoted := make([]string, len(sourceDirs))
	for i, d := range sourceDirs {
		quoted[i] = strconv.Quote(d)
	}

	var b strings.Builder
	b.WriteString("## Bundle of CA Root Certificates\n")
	b.WriteString("## Auto-generated on " + at.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("## by aggregating certificates from: [" + strings.Join(quoted, ", ") + "]\n")
	b.WriteString("\n")
	return b.String()
}
