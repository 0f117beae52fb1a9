package format

import (
	"errors"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/metronome/internal/io"
	"github.com/handiism/metronome/internal/model"
)

// ErrNoSourcePath is returned by Mirror when it is rendered without a
// source path.
var ErrNoSourcePath = errors.New("mirror: no source path")

// Mirror reproduces the source file's position in the input tree,
// changing only its extension. It is the namer used when no template is
// configured.
//
// Example:
//
//	m := Mirror{RelSource: "Artist/Album/01 - Song.flac"}
//	m.Render(model.Metadata{model.KeyExtension: "mp3"}) // "Artist/Album/01 - Song.mp3"
type Mirror struct {
	// RelSource is the source path relative to the input directory.
	RelSource string
}

// Render implements Namer.
func (m Mirror) Render(meta model.Metadata) (string, error) {
	if m.RelSource == "" {
		return "", ErrNoSourcePath
	}

	ext, ok := meta.Get(model.KeyExtension)
	if !ok {
		return "", &UnresolvedPlaceholderError{Name: model.KeyExtension}
	}

	rel := filepath.ToSlash(m.RelSource)
	dirs := strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/")
	stem := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))

	parts := make([]string, 0, len(dirs)+1)
	for _, d := range dirs {
		if d == "" || d == "." {
			continue
		}
		parts = append(parts, ioutils.SanitizeSegment(d))
	}
	parts = append(parts, ioutils.SanitizeFileName(stem+"."+ext))

	return filepath.Join(parts...), nil
}

// ForSource returns the namer for one source file: tmpl when it is set,
// otherwise a Mirror of relSource.
func ForSource(tmpl *Template, relSource string) Namer {
	if tmpl != nil {
		return tmpl
	}
	return Mirror{RelSource: relSource}
}
