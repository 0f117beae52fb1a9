package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	ioutils "github.com/handiism/metronome/internal/io"
	"github.com/handiism/metronome/internal/logger"
)

// CoverFileName is the name cover art is written under in every output
// directory.
const CoverFileName = "cover.jpg"

// coverCandidates are the image files looked for next to a source track,
// in order of preference. Matching is case-insensitive.
var coverCandidates = []string{
	"cover.jpg", "cover.jpeg", "folder.jpg", "folder.jpeg", "front.jpg", "front.jpeg",
	"cover.png", "folder.png", "front.png",
}

// Cover is prepared album art.
type Cover struct {
	// Data is a JPEG image.
	Data []byte

	// Embedded is true when the art came from the source's own tags.
	Embedded bool

	// Path is set when the art is an image file next to the source that
	// is already a fitting JPEG; it can be copied as is.
	Path string
}

// CoverArt locates and prepares album art for converted tracks.
type CoverArt struct {
	images  *ioutils.ImageService
	maxSize int
}

// NewCoverArt returns a CoverArt that scales images to at most maxSize
// pixels on their longest side. A maxSize of zero uses
// ioutils.DefaultCoverSize.
func NewCoverArt(images *ioutils.ImageService, maxSize int) *CoverArt {
	if images == nil {
		images = ioutils.NewImageService()
	}
	if maxSize <= 0 {
		maxSize = ioutils.DefaultCoverSize
	}
	return &CoverArt{images: images, maxSize: maxSize}
}

// Find returns cover art for source: its embedded picture, otherwise the
// first cover image in the source directory. It returns nil when the
// track has no art.
func (c *CoverArt) Find(ctx context.Context, source string) (*Cover, error) {
	raw, err := EmbeddedPicture(source)
	if err != nil {
		log.Emit(logger.DEBUG, "no embedded picture in %s: %v\n", source, err)
	}
	if raw != nil {
		data, err := c.images.FitJPEG(ctx, raw, c.maxSize)
		if err != nil {
			return nil, err
		}
		return &Cover{Data: data, Embedded: true}, nil
	}

	path := findCoverFile(filepath.Dir(source))
	if path == "" {
		return nil, nil
	}
	if raw, err = os.ReadFile(path); err != nil {
		return nil, err
	}

	needed, err := c.images.NeedsProcessing(raw, c.maxSize)
	if err != nil {
		return nil, err
	}
	if !needed {
		return &Cover{Data: raw, Path: path}, nil
	}

	data, err := c.images.FitJPEG(ctx, raw, c.maxSize)
	if err != nil {
		return nil, err
	}
	return &Cover{Data: data}, nil
}

func findCoverFile(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			byName[strings.ToLower(e.Name())] = e.Name()
		}
	}

	for _, candidate := range coverCandidates {
		if name, ok := byName[candidate]; ok {
			return filepath.Join(dir, name)
		}
	}
	return ""
}
