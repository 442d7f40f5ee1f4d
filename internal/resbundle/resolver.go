package resbundle

import "strings"

// ModuleSuffix ends the directory name a module's resources are expected
// under: <main bundle>/<package>_<module>.resources.
const ModuleSuffix = ".resources"

// Resolver turns bundle paths into Bundles.
type Resolver struct {
	// Main is the application bundle.
	Main *Bundle

	// Open opens a bundle path directly. Nil means OpenDir.
	Open func(bundlePath string) (*Bundle, error)
}

// Resolve returns the bundle for bundlePath.
//
// Module resources are expected next to the main bundle in a
// "<package>_<module>.resources" directory, which does not exist on
// restricted platforms. When moduleName and moduleBundle are given and
// bundlePath has exactly that shape, the bundle supplied by moduleBundle
// is returned instead. Every other path is opened directly. Nothing is
// cached.
func (r *Resolver) Resolve(bundlePath, moduleName string, moduleBundle func() *Bundle) (*Bundle, error) {
	if r.isModulePath(bundlePath, moduleName) && moduleBundle != nil {
		if b := moduleBundle(); b != nil {
			return b, nil
		}
	}

	open := r.Open
	if open == nil {
		open = OpenDir
	}
	return open(bundlePath)
}

func (r *Resolver) isModulePath(bundlePath, moduleName string) bool {
	if moduleName == "" || r.Main == nil {
		return false
	}
	i := strings.LastIndex(bundlePath, "/")
	if i < 0 {
		return false
	}
	dir, base := bundlePath[:i], bundlePath[i+1:]
	return dir == r.Main.BundlePath() && strings.HasSuffix(base, "_"+moduleName+ModuleSuffix)
}
