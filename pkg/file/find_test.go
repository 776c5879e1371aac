package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindSubtitles(t *testing.T) {
	dir := t.TempDir()

	mustWrite := func(rel string) string {
		path := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		return path
	}

	b := mustWrite("b.srt")
	a := mustWrite("a.srt")
	nested := mustWrite(filepath.Join("season1", "e01.SRT"))
	mustWrite("notes.txt")
	single := mustWrite("single.srt")

	// Directory contents come back sorted, explicit files stay in argument order.
	got, err := FindSubtitles([]string{single, dir})
	require.NoError(t, err)
	assert.Equal(t, []string{single, a, b, nested, single}, got)
}

func TestFindSubtitlesMissingPath(t *testing.T) {
	_, err := FindSubtitles([]string{filepath.Join(t.TempDir(), "missing.srt")})
	assert.Error(t, err)
}
