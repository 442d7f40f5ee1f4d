package prefs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/yndnr/hostbridge/internal/telemetry/logger"
	"github.com/yndnr/hostbridge/internal/telemetry/metric"
)

// ErrEmptyKey is returned for operations on the empty key.
var ErrEmptyKey = errors.New("prefs: empty key")

// Bridge exposes the typed preference API over a Store.
//
// Getters follow the usual preference conventions: a missing key, or one
// whose value cannot be converted, reads as the zero value. Registered
// defaults answer for keys the store does not hold. They live in the
// Bridge only and are never written through.
type Bridge struct {
	store   Store
	logger  *slog.Logger
	metrics *metric.Registry

	mu       sync.RWMutex
	defaults map[string]Value
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bridge) {
		b.logger = l
	}
}

// WithMetrics counts store round-trips.
func WithMetrics(m *metric.Registry) Option {
	return func(b *Bridge) {
		b.metrics = m
	}
}

// NewBridge creates a Bridge over store.
func NewBridge(store Store, opts ...Option) *Bridge {
	b := &Bridge{
		store:    store,
		defaults: make(map[string]Value),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = logger.OrDefault(b.logger)
	return b
}

// Object returns the stored value for key, falling back to a registered
// default.
func (b *Bridge) Object(key string) (Value, error) {
	if key == "" {
		return Absent(), ErrEmptyKey
	}

	b.metrics.PrefOp("get")
	v, err := b.store.Get(key)
	if err != nil {
		return Absent(), err
	}
	if !v.IsAbsent() {
		return v, nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.defaults[key], nil
}

// Double returns key as a double, or 0.
func (b *Bridge) Double(key string) (float64, error) {
	v, err := b.Object(key)
	if err != nil {
		return 0, err
	}
	f, _ := v.AsDouble()
	return f, nil
}

// Bool returns key as a bool, or false.
func (b *Bridge) Bool(key string) (bool, error) {
	v, err := b.Object(key)
	if err != nil {
		return false, err
	}
	t, _ := v.AsBool()
	return t, nil
}

// Integer returns key as an integer, or 0.
func (b *Bridge) Integer(key string) (int64, error) {
	v, err := b.Object(key)
	if err != nil {
		return 0, err
	}
	i, _ := v.AsInt()
	return i, nil
}

// String returns key as a string. ok is false when the key is absent or
// holds data.
func (b *Bridge) String(key string) (s string, ok bool, err error) {
	v, err := b.Object(key)
	if err != nil {
		return "", false, err
	}
	s, ok = v.AsString()
	return s, ok, nil
}

// Data returns key as bytes, or nil.
func (b *Bridge) Data(key string) ([]byte, error) {
	v, err := b.Object(key)
	if err != nil {
		return nil, err
	}
	d, _ := v.AsData()
	return d, nil
}

// URL returns key as a URL, or nil. Stored strings that are absolute
// paths read back as file URLs. A stored string that does not parse is
// an error.
func (b *Bridge) URL(key string) (*url.URL, error) {
	s, ok, err := b.String(key)
	if err != nil || !ok || s == "" {
		return nil, err
	}
	if strings.HasPrefix(s, "/") {
		return &url.URL{Scheme: "file", Path: s}, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("prefs: url %q: %w", key, err)
	}
	return u, nil
}

// Float always fails: the backing stores hold doubles only.
func (b *Bridge) Float(key string) (float32, error) {
	return 0, ErrFloatUnsupported
}

// Set stores v under key. Setting Absent removes the key.
func (b *Bridge) Set(key string, v Value) error {
	if key == "" {
		return ErrEmptyKey
	}
	if v.IsAbsent() {
		return b.RemoveObject(key)
	}

	b.metrics.PrefOp("set")
	if err := b.store.Set(key, v); err != nil {
		return err
	}
	b.logger.Debug("preference set", logger.PrefAttr(key, v.String()), "kind", v.Kind().String())
	return nil
}

// SetAny stores a dynamically typed value; see FromAny for the accepted
// types. nil removes the key.
func (b *Bridge) SetAny(key string, x any) error {
	v, err := FromAny(x)
	if err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	return b.Set(key, v)
}

// SetDouble stores f under key.
func (b *Bridge) SetDouble(key string, f float64) error { return b.Set(key, Double(f)) }

// SetBool stores t under key.
func (b *Bridge) SetBool(key string, t bool) error { return b.Set(key, Bool(t)) }

// SetInteger stores i under key.
func (b *Bridge) SetInteger(key string, i int64) error { return b.Set(key, Int(i)) }

// SetString stores s under key.
func (b *Bridge) SetString(key, s string) error { return b.Set(key, String(s)) }

// SetData stores d; nil removes the key.
func (b *Bridge) SetData(key string, d []byte) error {
	if d == nil {
		return b.RemoveObject(key)
	}
	return b.Set(key, Data(d))
}

// SetURL stores u in its string form; nil removes the key.
func (b *Bridge) SetURL(key string, u *url.URL) error {
	if u == nil {
		return b.RemoveObject(key)
	}
	if u.Scheme == "file" {
		return b.Set(key, String(u.Path))
	}
	return b.Set(key, String(u.String()))
}

// SetFloat always fails; use SetDouble.
func (b *Bridge) SetFloat(key string, f float32) error {
	return ErrFloatUnsupported
}

// RemoveObject deletes key from the store. Registered defaults stay.
func (b *Bridge) RemoveObject(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	b.metrics.PrefOp("remove")
	if err := b.store.Remove(key); err != nil {
		return err
	}
	b.logger.Debug("preference removed", "key", key)
	return nil
}

// Register adds defaults consulted for keys the store does not hold.
// Later registrations of the same key win. The map is validated as a
// whole before anything is registered.
func (b *Bridge) Register(defaults map[string]any) error {
	converted := make(map[string]Value, len(defaults))
	for k, x := range defaults {
		if k == "" {
			return ErrEmptyKey
		}
		v, err := FromAny(x)
		if err != nil {
			return fmt.Errorf("prefs: register %q: %w", k, err)
		}
		converted[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range converted {
		if v.IsAbsent() {
			delete(b.defaults, k)
			continue
		}
		b.defaults[k] = v
	}
	return nil
}

// DictionaryRepresentation returns registered defaults overlaid with
// every stored entry.
func (b *Bridge) DictionaryRepresentation() (map[string]Value, error) {
	b.metrics.PrefOp("list")
	stored, err := b.store.All()
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	out := make(map[string]Value, len(b.defaults)+len(stored))
	for k, v := range b.defaults {
		out[k] = v
	}
	b.mu.RUnlock()

	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// ResetStandardUserDefaults drops registered defaults. Stored values are
// untouched; use Clear to erase them.
func (b *Bridge) ResetStandardUserDefaults() {
	b.mu.Lock()
	defer b.mu.Unlock()
	clear(b.defaults)
}

// Clear removes every stored entry.
func (b *Bridge) Clear() error {
	b.metrics.PrefOp("reset")
	if err := b.store.Reset(); err != nil {
		return err
	}
	b.logger.Info("preferences cleared")
	return nil
}
