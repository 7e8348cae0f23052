package uploads

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveAndURL(t *testing.T) {
	dir := t.TempDir()

	store, err := NewDiskStore(dir, "/static/")
	require.NoError(t, err)

	err = store.Save(context.Background(), "photo.png", strings.NewReader("content"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "photo.png"))
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	assert.Equal(t, "/static/photo.png", store.URL("photo.png"))
}

func TestDiskStore_SaveIgnoresPathTraversal(t *testing.T) {
	dir := t.TempDir()

	store, err := NewDiskStore(dir, "/static")
	require.NoError(t, err)

	err = store.Save(context.Background(), "../../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)

	// The file lands inside the upload dir under its base name.
	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
}

func TestNewDiskStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")

	_, err := NewDiskStore(dir, "/static")
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRandomFilename(t *testing.T) {
	a := RandomFilename("photo.png")
	b := RandomFilename("photo.png")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasSuffix(a, ".png"))

	assert.False(t, strings.Contains(RandomFilename("noext"), "."))
}
