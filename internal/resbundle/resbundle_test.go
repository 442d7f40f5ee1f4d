package resbundle

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/hostbridge/internal/assets"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestDirBundle_Lookups(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sample.json":            `{"name": "sample"}`,
		"img/logo.png":           "png",
		"en.lproj/Greeting.txt":  "hello",
		"fr.lproj/Greeting.txt":  "bonjour",
		"Base.lproj/Layout.xml":  "<x/>",
		"Info.json":              `{"CFBundleIdentifier": "com.example.app", "CFBundleDevelopmentRegion": "en", "Version": 3}`,
		"not-a-loc.lprojx/a.txt": "x",
	})

	b, err := OpenDir(root)
	require.NoError(t, err)

	u := b.URL("sample", "json")
	require.NotNil(t, u)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, filepath.ToSlash(filepath.Join(root, "sample.json")), u.Path)

	assert.Equal(t, filepath.Join(root, "img", "logo.png"), b.PathIn("logo", "png", "img", ""))
	assert.Equal(t, filepath.Join(root, "img", "logo.png"), b.PathIn("", ".png", "img", ""))
	assert.Nil(t, b.URL("missing", "json"))
	assert.Empty(t, b.Path("missing", "json"))

	// Development localization is searched after the plain location.
	assert.Equal(t, filepath.Join(root, "en.lproj", "Greeting.txt"), b.Path("Greeting", "txt"))
	assert.Equal(t, filepath.Join(root, "fr.lproj", "Greeting.txt"), b.PathIn("Greeting", "txt", "", "fr"))
	assert.Empty(t, b.PathIn("Greeting", "txt", "", "de"))
	assert.Equal(t, filepath.Join(root, "Base.lproj", "Layout.xml"), b.Path("Layout", "xml"))

	assert.Equal(t, []string{"Base", "en", "fr"}, b.Localizations())
	assert.Equal(t, "com.example.app", b.Identifier())
	assert.Equal(t, "en", b.DevelopmentLocalization())
	assert.Equal(t, 3, b.Object("Version"))

	data, err := b.ReadResource("sample", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name": "sample"}`, string(data))

	_, err = b.ReadResource("nope", "txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{
		filepath.Join(root, "Info.json"),
		filepath.Join(root, "sample.json"),
	}, b.Paths("json", "", ""))
	assert.Equal(t, []string{filepath.Join(root, "fr.lproj", "Greeting.txt")}, b.Paths("txt", "", "fr"))
}

func TestBundle_InfoYAMLAndFallbackIdentifier(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Info.yaml": "CFBundleName: Demo\n"})

	b, err := OpenDir(root)
	require.NoError(t, err)

	info, err := b.InfoDictionary()
	require.NoError(t, err)
	assert.Equal(t, "Demo", info["CFBundleName"])
	assert.Equal(t, b.Provider().Identifier(), b.Identifier())

	bare, err := OpenDir(t.TempDir())
	require.NoError(t, err)
	info, err = bare.InfoDictionary()
	require.NoError(t, err)
	assert.Empty(t, info)
}

func TestBundle_BadInfo(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"Info.json": "{not: [valid"})

	b, err := OpenDir(root)
	require.NoError(t, err)
	_, err = b.InfoDictionary()
	assert.Error(t, err)
	assert.Nil(t, b.Object("anything"))
}

func TestAssetBundle(t *testing.T) {
	store := assets.NewFSStore(fstest.MapFS{
		"skip/samples/Resources/sample.json":        {Data: []byte(`{}`)},
		"skip/samples/Resources/en.lproj/Hi.txt":    {Data: []byte("hi")},
		"skip/samples/Resources/Info.yaml":          {Data: []byte("CFBundleIdentifier: skip.samples\n")},
		"skip/samples/Resources/nested/deep/x.json": {Data: []byte(`[]`)},
	})

	b := New(NewAssetProvider(store, "/skip/samples/Resources/"))

	u := b.URL("sample", "json")
	require.NotNil(t, u)
	assert.Equal(t, "asset:/skip/samples/Resources/sample.json", u.String())
	assert.Equal(t, "asset:/skip/samples/Resources", b.BundlePath())

	// Asset stores without a directory have no paths.
	assert.Empty(t, b.Path("sample", "json"))
	assert.Equal(t, []string{"en"}, b.Localizations())
	assert.Equal(t, "skip.samples", b.Identifier())
	assert.NotNil(t, b.URLIn("x", "json", "nested/deep", ""))

	data, err := b.ReadResource("sample", "json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestAssetProvider_DirStorePaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"mod/Resources/a.txt": "a"})

	ds, err := assets.NewDirStore(root)
	require.NoError(t, err)

	b := New(NewAssetProvider(ds, "mod/Resources"))
	assert.Equal(t, filepath.Join(root, "mod", "Resources", "a.txt"), b.Path("a", "txt"))
}

func TestProvider_RejectsEscapes(t *testing.T) {
	p, err := NewDirProvider(t.TempDir())
	require.NoError(t, err)
	assert.False(t, p.Lookup("../etc/passwd"))
	assert.Nil(t, p.URLFor("../x"))
	_, err = p.ReadFile("/abs")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := p.List("missing")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNewDirProvider_Errors(t *testing.T) {
	_, err := NewDirProvider(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewDirProvider(file)
	assert.Error(t, err)
}

func TestBundle_Same(t *testing.T) {
	p, err := NewDirProvider(t.TempDir())
	require.NoError(t, err)

	a, b := New(p), New(p)
	assert.True(t, a.Same(b))

	other, err := OpenDir(p.Root())
	require.NoError(t, err)
	assert.False(t, a.Same(other), "identity is the provider, not the path")

	var nilBundle *Bundle
	assert.False(t, a.Same(nilBundle))
	assert.True(t, nilBundle.Same(nil))
}

func TestResolver_ModuleRemap(t *testing.T) {
	mainRoot := t.TempDir()
	main, err := OpenDir(mainRoot)
	require.NoError(t, err)

	module := New(NewAssetProvider(assets.NewFSStore(fstest.MapFS{}), "mod"))
	opened := []string{}
	r := &Resolver{
		Main: main,
		Open: func(p string) (*Bundle, error) {
			opened = append(opened, p)
			return nil, errors.New("opened directly")
		},
	}
	supply := func() *Bundle { return module }

	got, err := r.Resolve(mainRoot+"/pkg_ModuleName.resources", "ModuleName", supply)
	require.NoError(t, err)
	assert.True(t, got.Same(module))

	direct := []struct {
		name   string
		path   string
		module string
		supply func() *Bundle
	}{
		{"other module", mainRoot + "/pkg_Other.resources", "ModuleName", supply},
		{"no module name", mainRoot + "/pkg_ModuleName.resources", "", supply},
		{"no module bundle", mainRoot + "/pkg_ModuleName.resources", "ModuleName", nil},
		{"wrong parent", mainRoot + "/sub/pkg_ModuleName.resources", "ModuleName", supply},
		{"missing suffix", mainRoot + "/pkg_ModuleName", "ModuleName", supply},
		{"no separator", "pkg_ModuleName.resources", "ModuleName", supply},
	}
	for _, tt := range direct {
		t.Run(tt.name, func(t *testing.T) {
			before := len(opened)
			_, err := r.Resolve(tt.path, tt.module, tt.supply)
			assert.Error(t, err)
			assert.Len(t, opened, before+1)
			assert.Equal(t, tt.path, opened[len(opened)-1])
		})
	}
}

func TestResolver_DefaultOpen(t *testing.T) {
	dir := t.TempDir()
	r := &Resolver{}

	b, err := r.Resolve(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, dir, b.BundlePath())

	_, err = r.Resolve(filepath.Join(dir, "missing"), "", nil)
	assert.Error(t, err)
}
