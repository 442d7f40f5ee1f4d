// Package resbundle resolves module resource bundles and looks resources
// up in them.
//
// A Bundle answers the usual lookups (URL and path for a named resource,
// optionally inside a subdirectory or a localization, the list of
// localizations, the info dictionary) on top of a Provider. Which
// Provider backs a bundle is decided once, by a Resolver.
package resbundle

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const lprojExt = ".lproj"

// InfoFiles are the info dictionary names tried in order. JSON is
// parsed by the YAML decoder as well.
var InfoFiles = []string{"Info.json", "Info.yaml", "Info.yml"}

// Bundle is a handle on one resource bundle.
type Bundle struct {
	p Provider

	infoOnce sync.Once
	info     map[string]any
	infoErr  error
}

// New wraps p.
func New(p Provider) *Bundle {
	return &Bundle{p: p}
}

// OpenDir opens a filesystem bundle at dir.
func OpenDir(dir string) (*Bundle, error) {
	p, err := NewDirProvider(dir)
	if err != nil {
		return nil, err
	}
	return New(p), nil
}

// Provider returns the backing provider.
func (b *Bundle) Provider() Provider { return b.p }

// BundlePath returns the path the bundle was opened at.
func (b *Bundle) BundlePath() string { return b.p.Root() }

// BundleURL returns the URL of the bundle root.
func (b *Bundle) BundleURL() *url.URL { return b.p.URLFor(".") }

// Same reports whether b and other read from the same provider.
func (b *Bundle) Same(other *Bundle) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.p == other.p
}

// URL returns the URL of name.ext, or nil if absent.
func (b *Bundle) URL(name, ext string) *url.URL {
	return b.URLIn(name, ext, "", "")
}

// URLIn returns the URL of name.ext inside subdir, restricted to
// localization when it is non-empty.
func (b *Bundle) URLIn(name, ext, subdir, localization string) *url.URL {
	rel, ok := b.find(name, ext, subdir, localization)
	if !ok {
		return nil
	}
	return b.p.URLFor(rel)
}

// Path returns the path of name.ext, or "" if absent.
func (b *Bundle) Path(name, ext string) string {
	return b.PathIn(name, ext, "", "")
}

// PathIn is the path form of URLIn.
func (b *Bundle) PathIn(name, ext, subdir, localization string) string {
	rel, ok := b.find(name, ext, subdir, localization)
	if !ok {
		return ""
	}
	return b.p.PathFor(rel)
}

// Paths returns the paths of every resource with extension ext in
// subdir. An empty ext matches every file.
func (b *Bundle) Paths(ext, subdir, localization string) []string {
	dir := subdir
	if localization != "" {
		dir = path.Join(localization+lprojExt, subdir)
	}
	children, err := b.p.List(dir)
	if err != nil {
		return nil
	}

	var out []string
	for _, c := range children {
		rel := path.Join(dir, c)
		if !b.p.Lookup(rel) || !hasExt(c, ext) {
			continue
		}
		if p := b.p.PathFor(rel); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ReadResource returns the contents of name.ext.
func (b *Bundle) ReadResource(name, ext string) ([]byte, error) {
	rel, ok := b.find(name, ext, "", "")
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fileName(name, ext))
	}
	return b.p.ReadFile(rel)
}

// find applies the lookup order: the plain location first, then the
// development localization. An explicit localization only looks inside
// its own .lproj directory.
func (b *Bundle) find(name, ext, subdir, localization string) (string, bool) {
	var dirs []string
	if localization != "" {
		lproj := localization + lprojExt
		dirs = []string{path.Join(subdir, lproj), path.Join(lproj, subdir)}
	} else {
		dirs = []string{subdir}
		if dev := b.DevelopmentLocalization(); dev != "" {
			dirs = append(dirs, path.Join(dev+lprojExt, subdir))
		}
		dirs = append(dirs, path.Join("Base"+lprojExt, subdir))
	}

	for _, dir := range dirs {
		if rel, ok := b.findIn(dir, name, ext); ok {
			return rel, true
		}
	}
	return "", false
}

func (b *Bundle) findIn(dir, name, ext string) (string, bool) {
	if name != "" {
		rel := path.Join(dir, fileName(name, ext))
		return rel, b.p.Lookup(rel)
	}
	if ext == "" {
		return "", false
	}
	// No name: the first resource carrying ext.
	children, err := b.p.List(dir)
	if err != nil {
		return "", false
	}
	for _, c := range children {
		rel := path.Join(dir, c)
		if hasExt(c, ext) && b.p.Lookup(rel) {
			return rel, true
		}
	}
	return "", false
}

// Localizations returns the names of the bundle's .lproj directories,
// sorted.
func (b *Bundle) Localizations() []string {
	children, err := b.p.List("")
	if err != nil {
		return nil
	}
	var out []string
	for _, c := range children {
		if loc, ok := strings.CutSuffix(c, lprojExt); ok && loc != "" {
			out = append(out, loc)
		}
	}
	sort.Strings(out)
	return out
}

// DevelopmentLocalization returns CFBundleDevelopmentRegion from the
// info dictionary, or "".
func (b *Bundle) DevelopmentLocalization() string {
	s, _ := b.Object("CFBundleDevelopmentRegion").(string)
	return s
}

// Identifier returns CFBundleIdentifier from the info dictionary, falling
// back to the provider identifier.
func (b *Bundle) Identifier() string {
	if s, ok := b.Object("CFBundleIdentifier").(string); ok && s != "" {
		return s
	}
	return b.p.Identifier()
}

// InfoDictionary parses the first info file present. A bundle without
// one has an empty dictionary. The result is cached.
func (b *Bundle) InfoDictionary() (map[string]any, error) {
	b.infoOnce.Do(func() {
		b.info, b.infoErr = b.loadInfo()
	})
	return b.info, b.infoErr
}

// Object returns one info dictionary entry, or nil.
func (b *Bundle) Object(key string) any {
	info, err := b.InfoDictionary()
	if err != nil {
		return nil
	}
	return info[key]
}

func (b *Bundle) loadInfo() (map[string]any, error) {
	for _, name := range InfoFiles {
		data, err := b.p.ReadFile(name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resbundle: read %s: %w", name, err)
		}

		info := map[string]any{}
		if err := yaml.Unmarshal(data, &info); err != nil {
			return nil, fmt.Errorf("resbundle: parse %s: %w", name, err)
		}
		return info, nil
	}
	return map[string]any{}, nil
}

func fileName(name, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func hasExt(name, ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	return ext == "" || strings.HasSuffix(name, "."+ext)
}
