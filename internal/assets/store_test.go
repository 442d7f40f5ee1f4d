package assets

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore_Load(t *testing.T) {
	store := NewFSStore(fstest.MapFS{
		"index.html":        {Data: []byte("<h1>hi</h1>")},
		"img/logo.png":      {Data: []byte{0x89, 'P', 'N', 'G'}},
		"en.lproj/a.string": {Data: []byte("a")},
	})

	tests := []struct {
		name    string
		path    string
		want    []byte
		wantErr error
	}{
		{name: "top level", path: "index.html", want: []byte("<h1>hi</h1>")},
		{name: "nested binary", path: "img/logo.png", want: []byte{0x89, 'P', 'N', 'G'}},
		{name: "missing", path: "nope.txt", wantErr: ErrNotFound},
		{name: "directory is a miss", path: "img", wantErr: ErrNotFound},
		{name: "leading slash", path: "/index.html", wantErr: ErrInvalidPath},
		{name: "escaping", path: "../etc/passwd", wantErr: ErrInvalidPath},
		{name: "empty", path: "", wantErr: ErrInvalidPath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.Load(tt.path)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFSStore_ReadDirAndStat(t *testing.T) {
	store := NewFSStore(fstest.MapFS{
		"a/one.txt": {Data: []byte("1")},
		"a/two.txt": {Data: []byte("2")},
	})

	entries, err := store.ReadDir("a")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "one.txt", entries[0].Name())

	root, err := store.ReadDir("")
	require.NoError(t, err)
	assert.Len(t, root, 1)

	_, err = store.ReadDir("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	info, err := store.Stat("a/two.txt")
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	_, err = store.Stat("a/three.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDirStore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "web"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "web", "app.js"), []byte("run()"), 0o644))

	store, err := NewDirStore(root)
	require.NoError(t, err)
	assert.Equal(t, root, store.Root())

	data, err := store.Load("web/app.js")
	require.NoError(t, err)
	assert.Equal(t, "run()", string(data))

	_, err = store.Load("web/missing.js")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNewDirStore_Errors(t *testing.T) {
	_, err := NewDirStore(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = NewDirStore(file)
	assert.Error(t, err)
}
