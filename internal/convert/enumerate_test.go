package convert

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("audio"), 0644))
}

func rels(sources []Source) []string {
	out := make([]string, 0, len(sources))
	for _, s := range sources {
		out = append(out, filepath.ToSlash(s.Rel))
	}
	return out
}

var flacOnly = map[string]bool{"flac": true, "wav": true}

func TestEnumerate_FiltersByExtension(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.flac"))
	touch(t, filepath.Join(root, "a.FLAC"))
	touch(t, filepath.Join(root, "sub", "c.wav"))
	touch(t, filepath.Join(root, "notes.txt"))
	touch(t, filepath.Join(root, "noext"))
	touch(t, filepath.Join(root, ".hidden.flac"))
	touch(t, filepath.Join(root, ".git", "x.flac"))

	sources, err := Enumerate(root, flacOnly, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.FLAC", "b.flac", "sub/c.wav"}, rels(sources))
	for _, s := range sources {
		assert.True(t, filepath.IsAbs(s.Path))
	}
}

func TestEnumerate_SkipsExcludedDirectory(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "out")
	touch(t, filepath.Join(root, "a.flac"))
	touch(t, filepath.Join(out, "old.flac"))

	sources, err := Enumerate(root, flacOnly, []string{out}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.flac"}, rels(sources))
}

func TestEnumerate_SymlinkLoopTerminates(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	touch(t, filepath.Join(root, "album", "01.flac"))
	require.NoError(t, os.Symlink(root, filepath.Join(root, "album", "loop")))

	sources, err := Enumerate(root, flacOnly, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"album/01.flac"}, rels(sources))
}

func TestEnumerate_FollowsSymlinkedDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	elsewhere := t.TempDir()
	touch(t, filepath.Join(elsewhere, "01.flac"))

	root := t.TempDir()
	require.NoError(t, os.Symlink(elsewhere, filepath.Join(root, "linked")))

	sources, err := Enumerate(root, flacOnly, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"linked/01.flac"}, rels(sources))
}

func TestEnumerate_ReportsBrokenSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	touch(t, filepath.Join(root, "a.flac"))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.flac")))

	var reported []*EnumerationError
	sources, err := Enumerate(root, flacOnly, nil, func(e *EnumerationError) {
		reported = append(reported, e)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.flac"}, rels(sources))
	require.Len(t, reported, 1)
	assert.Equal(t, filepath.Join(root, "dangling.flac"), reported[0].Path)
}

func TestEnumerate_MissingRoot(t *testing.T) {
	_, err := Enumerate(filepath.Join(t.TempDir(), "nope"), flacOnly, nil, nil)
	assert.Error(t, err)
}
