package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel ...string) {
	t.Helper()
	for _, r := range rel {
		path := filepath.Join(root, filepath.FromSlash(r))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("[]"), 0644))
	}
}

func TestFindByExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.json", "sub/b.json", "sub/deep/c.json", "notes.txt", "sub/d.json.bak", "sub/xjson")

	files, err := Find(Options{Root: root, Extension: ".json"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "sub", "b.json"),
		filepath.Join(root, "sub", "deep", "c.json"),
	}, files)

	// Without the dot every name ending in "json" matches.
	files, err = Find(Options{Root: root, Extension: "json"})
	require.NoError(t, err)
	assert.Len(t, files, 4)
}

func TestFindEmptyExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.json", "b.txt")

	files, err := Find(Options{Root: root})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindExclude(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "keep/a.json", "tmp/b.json", "keep/tmp/c.json", "keep/d.partial.json")

	files, err := Find(Options{
		Root:      root,
		Extension: ".json",
		Exclude:   []string{"tmp", "**/*.partial.json"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "keep", "a.json"),
		filepath.Join(root, "keep", "tmp", "c.json"),
	}, files)
}

func TestFindErrors(t *testing.T) {
	t.Run("MissingRoot", func(t *testing.T) {
		_, err := Find(Options{Root: filepath.Join(t.TempDir(), "nope"), Extension: ".json"})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("RootIsFile", func(t *testing.T) {
		root := t.TempDir()
		touch(t, root, "a.json")
		_, err := Find(Options{Root: filepath.Join(root, "a.json"), Extension: ".json"})
		assert.Error(t, err)
	})

	t.Run("BadPattern", func(t *testing.T) {
		_, err := Find(Options{Root: t.TempDir(), Exclude: []string{"[unclosed"}})
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})
}

func TestFindFollowsFileSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	touch(t, root, "a.json")
	touch(t, outside, "linked.json", "dir/c.json")

	if err := os.Symlink(filepath.Join(outside, "linked.json"), filepath.Join(root, "b.json")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "d.json")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "missing.json"), filepath.Join(root, "dangling.json")))

	files, err := Find(Options{Root: root, Extension: ".json"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "b.json"),
		filepath.Join(root, "dangling.json"),
	}, files)
}
