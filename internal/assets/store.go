// Package assets models the host platform's read-only asset store.
//
// Assets are addressed by relative, slash-separated paths ("img/logo.png").
// A leading slash is a caller bug, not a lookup hint, so every store rejects
// it with ErrInvalidPath instead of guessing.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var (
	// ErrNotFound is returned when no asset exists at the requested path.
	ErrNotFound = errors.New("assets: not found")

	// ErrInvalidPath is returned for absolute or escaping paths.
	ErrInvalidPath = errors.New("assets: invalid path")
)

// Store loads bundled application resources.
type Store interface {
	// Load returns the full contents of the asset at relPath.
	// A missing asset yields an error wrapping ErrNotFound.
	Load(relPath string) ([]byte, error)
}

// FSStore serves assets from any fs.FS, including embed.FS and
// fstest.MapFS.
type FSStore struct {
	fsys fs.FS
}

// NewFSStore wraps fsys as an asset store.
func NewFSStore(fsys fs.FS) *FSStore {
	return &FSStore{fsys: fsys}
}

// Load implements Store.
func (s *FSStore) Load(relPath string) ([]byte, error) {
	if err := validate(relPath); err != nil {
		return nil, err
	}

	info, err := fs.Stat(s.fsys, relPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
		}
		return nil, fmt.Errorf("assets: stat %s: %w", relPath, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, relPath)
	}

	data, err := fs.ReadFile(s.fsys, relPath)
	if err != nil {
		return nil, fmt.Errorf("assets: load %s: %w", relPath, err)
	}

	return data, nil
}

// Stat reports whether relPath names a regular asset or a directory.
func (s *FSStore) Stat(relPath string) (fs.FileInfo, error) {
	if relPath == "" {
		relPath = "."
	}
	if err := validate(relPath); err != nil {
		return nil, err
	}
	info, err := fs.Stat(s.fsys, relPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return info, err
}

// ReadDir lists the asset directory at relPath ("." for the root).
func (s *FSStore) ReadDir(relPath string) ([]fs.DirEntry, error) {
	if relPath == "" {
		relPath = "."
	}
	if err := validate(relPath); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(s.fsys, relPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, relPath)
	}
	return entries, err
}

// DirStore is an FSStore rooted at a directory on disk. On a restricted
// platform this is the unpacked asset directory of the application
// package.
type DirStore struct {
	*FSStore
	root string
}

// NewDirStore opens root as an asset store. The directory must exist.
func NewDirStore(root string) (*DirStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("assets: open root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets: root %s is not a directory", root)
	}
	return &DirStore{FSStore: NewFSStore(os.DirFS(root)), root: root}, nil
}

// Root returns the directory backing the store.
func (s *DirStore) Root() string {
	return s.root
}

func validate(relPath string) error {
	if !fs.ValidPath(relPath) {
		return fmt.Errorf("%w: %q", ErrInvalidPath, relPath)
	}
	return nil
}
