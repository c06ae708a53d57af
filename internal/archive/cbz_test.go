package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) []string {
	t.Helper()
	var out []string
	for _, n := range names {
		p := filepath.Join(dir, n)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("data-"+n), 0644))
		out = append(out, p)
	}
	return out
}

func entries(t *testing.T, path string) []string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	var names []string
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	return names
}

func TestCreateCBZKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, "1.jpg", "2.jpg", "10.jpg")
	out := filepath.Join(dir, "out", "ch1.cbz")

	require.NoError(t, CreateCBZ(files, out))

	assert.Equal(t, []string{"1.jpg", "2.jpg", "10.jpg"}, entries(t, out))
}

func TestCreateCBZDuplicateBaseNames(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, "a/1.png", "b/1.png")
	out := filepath.Join(dir, "x.cbz")

	require.NoError(t, CreateCBZ(files, out))
	assert.Equal(t, []string{"1.png", "1_1.png"}, entries(t, out))
}

func TestCreateCBZMissingInputLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	files := writeFiles(t, dir, "1.jpg")
	files = append(files, filepath.Join(dir, "missing.jpg"))
	out := filepath.Join(dir, "x.cbz")

	require.Error(t, CreateCBZ(files, out))

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err))

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, left, 1, "temp archive removed")
}

func TestCreateCBZEmpty(t *testing.T) {
	require.Error(t, CreateCBZ(nil, filepath.Join(t.TempDir(), "x.cbz")))
}
