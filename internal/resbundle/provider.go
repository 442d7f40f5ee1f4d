package resbundle

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/yndnr/hostbridge/internal/assetproto"
	"github.com/yndnr/hostbridge/internal/assets"
)

// ErrNotFound is returned when a resource does not exist in a bundle.
var ErrNotFound = errors.New("resbundle: resource not found")

// Provider is the storage a Bundle reads from. Relative paths are
// slash-separated and never start with a slash.
type Provider interface {
	// Root is the bundle path the provider was opened at.
	Root() string

	// Identifier distinguishes providers when a bundle has no
	// CFBundleIdentifier of its own.
	Identifier() string

	// Lookup reports whether relPath names an existing file.
	Lookup(relPath string) bool

	// URLFor returns the URL a loader can fetch relPath from.
	URLFor(relPath string) *url.URL

	// PathFor returns a path for relPath, or "" when the resource has no
	// path representation.
	PathFor(relPath string) string

	ReadFile(relPath string) ([]byte, error)

	// List returns the sorted names of the children of dir ("" for the
	// root). A missing dir lists as empty.
	List(dir string) ([]string, error)
}

// DirProvider serves a bundle from a directory on disk.
type DirProvider struct {
	root string
}

// NewDirProvider opens root, which must be an existing directory.
func NewDirProvider(root string) (*DirProvider, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resbundle: resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("resbundle: open %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("resbundle: %s is not a directory", root)
	}
	return &DirProvider{root: abs}, nil
}

func (p *DirProvider) Root() string       { return p.root }
func (p *DirProvider) Identifier() string { return "dir:" + p.root }

func (p *DirProvider) full(relPath string) (string, bool) {
	if relPath == "" {
		relPath = "."
	}
	if !fs.ValidPath(relPath) {
		return "", false
	}
	return filepath.Join(p.root, filepath.FromSlash(relPath)), true
}

func (p *DirProvider) Lookup(relPath string) bool {
	full, ok := p.full(relPath)
	if !ok {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

func (p *DirProvider) URLFor(relPath string) *url.URL {
	full, ok := p.full(relPath)
	if !ok {
		return nil
	}
	return &url.URL{Scheme: "file", Path: filepath.ToSlash(full)}
}

func (p *DirProvider) PathFor(relPath string) string {
	full, _ := p.full(relPath)
	return full
}

func (p *DirProvider) ReadFile(relPath string) ([]byte, error) {
	full, ok := p.full(relPath)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, relPath)
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return data, err
}

func (p *DirProvider) List(dir string) ([]string, error) {
	full, ok := p.full(dir)
	if !ok {
		return nil, nil
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resbundle: list %s: %w", dir, err)
	}
	return names(entries), nil
}

// AssetStore is an asset store that can also be browsed.
// *assets.FSStore and *assets.DirStore satisfy it.
type AssetStore interface {
	assets.Store
	Stat(relPath string) (fs.FileInfo, error)
	ReadDir(relPath string) ([]fs.DirEntry, error)
}

// AssetProvider serves a bundle from a prefix of the platform asset
// store. Its URLs use the asset scheme, so any client whose transport
// has the asset protocol registered can load them.
type AssetProvider struct {
	store  AssetStore
	prefix string
}

// NewAssetProvider returns the bundle stored under prefix in store.
func NewAssetProvider(store AssetStore, prefix string) *AssetProvider {
	return &AssetProvider{store: store, prefix: path.Clean("/" + prefix)[1:]}
}

func (p *AssetProvider) rel(relPath string) string {
	return path.Join(p.prefix, relPath)
}

// Root returns the asset URL of the bundle directory.
func (p *AssetProvider) Root() string {
	return assetproto.Scheme + ":/" + p.prefix
}

func (p *AssetProvider) Identifier() string { return p.Root() }

func (p *AssetProvider) Lookup(relPath string) bool {
	if !fs.ValidPath(relPath) {
		return false
	}
	info, err := p.store.Stat(p.rel(relPath))
	return err == nil && !info.IsDir()
}

func (p *AssetProvider) URLFor(relPath string) *url.URL {
	if !fs.ValidPath(relPath) {
		return nil
	}
	return &url.URL{Scheme: assetproto.Scheme, Path: "/" + p.rel(relPath), OmitHost: true}
}

// PathFor returns an on-disk path when the asset store is directory
// backed, and "" otherwise.
func (p *AssetProvider) PathFor(relPath string) string {
	ds, ok := p.store.(*assets.DirStore)
	if !ok || !fs.ValidPath(relPath) {
		return ""
	}
	return filepath.Join(ds.Root(), filepath.FromSlash(p.rel(relPath)))
}

func (p *AssetProvider) ReadFile(relPath string) ([]byte, error) {
	if !fs.ValidPath(relPath) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, relPath)
	}
	data, err := p.store.Load(p.rel(relPath))
	if errors.Is(err, assets.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return data, err
}

func (p *AssetProvider) List(dir string) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if !fs.ValidPath(dir) {
		return nil, nil
	}
	entries, err := p.store.ReadDir(p.rel(dir))
	if errors.Is(err, assets.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resbundle: list %s: %w", dir, err)
	}
	return names(entries), nil
}

func names(entries []fs.DirEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}
