package assetproto

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/yndnr/hostbridge/internal/assets"
)

// ErrAlreadyRegistered is returned when the transport already carries an
// asset handler installed by someone else.
var ErrAlreadyRegistered = errors.New("assetproto: scheme already registered on transport")

// StoreResolver obtains the platform asset store. On a restricted
// platform this crosses into the host runtime and may fail.
type StoreResolver func() (assets.Store, error)

// Registry installs a Handler on a transport at most once.
type Registry struct {
	mu         sync.Mutex
	registered bool
	handler    *Handler
}

// Register resolves the asset store and installs a handler for Scheme on
// t. Calls after the first successful one are no-ops. When resolve fails
// nothing is installed and the error is returned, so the scheme never ends
// up registered without a working store.
func (r *Registry) Register(t *http.Transport, resolve StoreResolver, opts ...Option) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.registered {
		return nil
	}
	if t == nil {
		return errors.New("assetproto: nil transport")
	}

	store, err := resolve()
	if err != nil {
		return fmt.Errorf("assetproto: resolve asset store: %w", err)
	}

	h := NewHandler(store, opts...)

	// RegisterProtocol panics on duplicate schemes.
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrAlreadyRegistered, p)
		}
	}()
	t.RegisterProtocol(Scheme, h)

	r.handler = h
	r.registered = true
	return nil
}

// Registered reports whether Register has succeeded.
func (r *Registry) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registered
}

// Handler returns the installed handler, or nil before registration.
func (r *Registry) Handler() *Handler {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handler
}

var defaultRegistry Registry

// Register installs the asset handler on http.DefaultTransport.
func Register(resolve StoreResolver, opts ...Option) error {
	t, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return errors.New("assetproto: http.DefaultTransport is not an *http.Transport")
	}
	return defaultRegistry.Register(t, resolve, opts...)
}

// Default returns the process-wide registry used by Register.
func Default() *Registry {
	return &defaultRegistry
}
