// Package assetproto serves "asset:" URLs from the platform asset store.
//
// Handler is an http.RoundTripper. Once registered on an *http.Transport,
// any client using that transport can fetch bundled resources with
// ordinary GET requests; the fetch completes synchronously inside
// RoundTrip. Store outcomes are translated into HTTP statuses:
//
//	200  asset found, body carries the bytes
//	404  asset missing or unreadable
//	500  no asset store configured
package assetproto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/yndnr/hostbridge/internal/assets"
	"github.com/yndnr/hostbridge/internal/telemetry/logger"
	"github.com/yndnr/hostbridge/internal/telemetry/metric"
)

// Scheme is the URL scheme served by Handler.
const Scheme = "asset"

// ErrUnsupportedScheme is returned by RoundTrip for non-asset URLs.
var ErrUnsupportedScheme = errors.New("assetproto: unsupported scheme")

// State is the lifecycle position of a single request.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateResponded
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateResponded:
		return "responded"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// FinishFunc is called exactly once per handled request with the status
// that was sent.
type FinishFunc func(req *http.Request, status int)

// Handler serves asset: requests.
type Handler struct {
	store    assets.Store
	logger   *slog.Logger
	metrics  *metric.Registry
	onFinish FinishFunc
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger for the handler.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// WithMetrics records per-status request counts.
func WithMetrics(m *metric.Registry) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// OnFinish registers the completion callback.
func OnFinish(fn FinishFunc) Option {
	return func(h *Handler) {
		h.onFinish = fn
	}
}

// NewHandler creates a handler backed by store. A nil store is allowed;
// every request is then answered with 500.
func NewHandler(store assets.Store, opts ...Option) *Handler {
	h := &Handler{store: store}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logger.OrDefault(h.logger)
	return h
}

// CanHandle reports whether req targets the asset scheme.
func CanHandle(req *http.Request) bool {
	return req != nil && req.URL != nil && req.URL.Scheme == Scheme
}

// AssetPath derives the store-relative path from an asset: URL. Exactly
// one leading separator is removed; asset lookups are never absolute.
func AssetPath(u *url.URL) string {
	p := u.Path
	if p == "" {
		p = u.Opaque
	}
	return strings.TrimPrefix(p, "/")
}

// RoundTrip implements http.RoundTripper. Handled requests never return
// an error: failures are expressed as 404 or 500 responses.
func (h *Handler) RoundTrip(req *http.Request) (*http.Response, error) {
	if !CanHandle(req) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedScheme, req.URL)
	}

	r := &request{req: req, handler: h, log: logger.ForRequest(req.Context(), h.logger)}
	defer r.finish()

	return r.start(), nil
}

// Stop is a no-op: once RoundTrip has begun the fetch there is nothing
// left in flight to cancel.
func (h *Handler) Stop(*http.Request) {}

type request struct {
	req     *http.Request
	handler *Handler
	log     *slog.Logger
	state   State
	status  int
}

func (r *request) start() *http.Response {
	h := r.handler
	r.state = StateLoading

	if h.store == nil {
		return r.respond(http.StatusInternalServerError, nil)
	}

	assetPath := AssetPath(r.req.URL)
	data, err := r.load(assetPath)
	if err != nil {
		if !errors.Is(err, assets.ErrNotFound) {
			r.log.Warn("asset load failed", "path", assetPath, "error", err)
		}
		return r.respond(http.StatusNotFound, nil)
	}

	resp := r.respond(http.StatusOK, data)
	if ctype := mime.TypeByExtension(path.Ext(assetPath)); ctype != "" {
		resp.Header.Set("Content-Type", ctype)
	}
	return resp
}

// load shields the caller from a misbehaving store.
func (r *request) load(assetPath string) (data []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			data, err = nil, fmt.Errorf("assetproto: store panicked: %v", p)
		}
	}()
	return r.handler.store.Load(assetPath)
}

func (r *request) respond(code int, body []byte) *http.Response {
	r.state = StateResponded
	r.status = code

	resp := &http.Response{
		Status:     strconv.Itoa(code) + " " + http.StatusText(code),
		StatusCode: code,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     make(http.Header),
		Body:       http.NoBody,
		Request:    r.req,
	}
	if body != nil {
		resp.Body = io.NopCloser(bytes.NewReader(body))
		resp.ContentLength = int64(len(body))
		resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
	}
	return resp
}

func (r *request) finish() {
	if r.state == StateFinished {
		return
	}
	r.state = StateFinished

	h := r.handler
	h.metrics.AssetRequest(r.status)
	r.log.Debug("asset request finished", "url", r.req.URL.String(), "status", r.status)
	if h.onFinish != nil {
		h.onFinish(r.req, r.status)
	}
}
