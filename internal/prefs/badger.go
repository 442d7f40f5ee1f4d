package prefs

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/yndnr/hostbridge/internal/storage"
)

// DefaultSuite names the store used when no suite is given.
const DefaultSuite = "standard"

// BadgerStore persists preferences in an embedded KV engine. Each suite
// lives under its own key prefix, prefs/<suite>/, with the suite name
// path-escaped so one suite's prefix never contains another's.
type BadgerStore struct {
	kv     storage.KV
	suite  string
	prefix []byte
}

// NewBadgerStore returns the store for suite on kv. An empty suite
// selects DefaultSuite.
func NewBadgerStore(kv storage.KV, suite string) *BadgerStore {
	if suite == "" {
		suite = DefaultSuite
	}
	return &BadgerStore{
		kv:     kv,
		suite:  suite,
		prefix: []byte("prefs/" + url.PathEscape(suite) + "/"),
	}
}

// Suite returns the suite name.
func (s *BadgerStore) Suite() string {
	return s.suite
}

func (s *BadgerStore) key(name string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(name))
	k = append(k, s.prefix...)
	return append(k, name...)
}

func (s *BadgerStore) Get(key string) (Value, error) {
	raw, err := s.kv.Get(context.Background(), s.key(key))
	if errors.Is(err, storage.ErrKeyNotFound) {
		return Absent(), nil
	}
	if err != nil {
		return Absent(), fmt.Errorf("prefs: get %q: %w", key, err)
	}

	var v Value
	if err := v.UnmarshalBinary(raw); err != nil {
		return Absent(), fmt.Errorf("prefs: get %q: %w", key, err)
	}
	return v, nil
}

func (s *BadgerStore) Set(key string, v Value) error {
	if v.IsAbsent() {
		return s.Remove(key)
	}
	raw, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	if err := s.kv.Set(context.Background(), s.key(key), raw); err != nil {
		return fmt.Errorf("prefs: set %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) Remove(key string) error {
	if err := s.kv.Delete(context.Background(), s.key(key)); err != nil {
		return fmt.Errorf("prefs: remove %q: %w", key, err)
	}
	return nil
}

func (s *BadgerStore) All() (map[string]Value, error) {
	out := make(map[string]Value)
	var decodeErr error

	err := s.kv.Scan(context.Background(), s.prefix, func(k, raw []byte) bool {
		name := string(k[len(s.prefix):])
		var v Value
		if err := v.UnmarshalBinary(raw); err != nil {
			decodeErr = fmt.Errorf("prefs: decode %q: %w", name, err)
			return false
		}
		out[name] = v
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("prefs: scan suite %s: %w", s.suite, err)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	return out, nil
}

func (s *BadgerStore) Reset() error {
	if err := s.kv.DropPrefix(context.Background(), s.prefix); err != nil {
		return fmt.Errorf("prefs: reset suite %s: %w", s.suite, err)
	}
	return nil
}
