package screenshot_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/shelfscan/screenshot"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func fixedNow() time.Time { return time.Date(2026, 10, 16, 9, 30, 5, 0, time.UTC) }

func TestFileStore_SaveNamesFile(t *testing.T) {
	t.Parallel()

	// Given
	store, err := screenshot.NewFileStore(t.TempDir(), fixedNow)
	require.NoError(t, err)

	// When
	path, err := store.Save("full_page", pngBytes)

	// Then
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^20261016_093005_[0-9a-f]{8}_full_page\.png$`), filepath.Base(path))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, got)
}

func TestFileStore_ListAndPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := screenshot.NewFileStore(dir, fixedNow)
	require.NoError(t, err)
	path, err := store.Save("footer", pngBytes)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, filepath.Base(path), list[0].Name)
	assert.Equal(t, int64(len(pngBytes)), list[0].Size)
	assert.Equal(t, 1, store.Count())

	resolved, err := store.Path(list[0].Name)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	_, err = store.Path("missing.png")
	assert.ErrorIs(t, err, screenshot.ErrNotFound)
}

func TestValidName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want bool
	}{
		{"20261016_093005_abcd1234_footer.png", true},
		{"", false},
		{"../etc/passwd", false},
		{"a/b.png", false},
		{`a\b.png`, false},
		{"..png", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, screenshot.ValidName(tt.name), tt.name)
	}
}

func TestFileStore_PathRejectsTraversal(t *testing.T) {
	t.Parallel()

	store, err := screenshot.NewFileStore(t.TempDir(), fixedNow)
	require.NoError(t, err)

	_, err = store.Path("../secret.png")
	assert.ErrorIs(t, err, screenshot.ErrInvalidName)
}

func TestFileStore_CleanupRemovesOldFiles(t *testing.T) {
	t.Parallel()

	// Given one fresh and one eight-day-old file
	dir := t.TempDir()
	store, err := screenshot.NewFileStore(dir, fixedNow)
	require.NoError(t, err)

	fresh, err := store.Save("full_page", pngBytes)
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(fresh, fixedNow(), fixedNow()))

	stale, err := store.Save("footer", pngBytes)
	require.NoError(t, err)
	old := fixedNow().Add(-8 * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	// When
	removed, err := store.Cleanup(7 * 24 * time.Hour)

	// Then
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.FileExists(t, fresh)
	assert.NoFileExists(t, stale)
}

func TestBase64Sink(t *testing.T) {
	t.Parallel()

	ref, err := screenshot.Base64Sink{}.Save("full_page", []byte("abc"))

	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,YWJj", ref)
}
