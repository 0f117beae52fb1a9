package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/model"
)

var log = logger.Get("Audio")

// Prober reads tags through an external tool. It is the fallback for
// containers the native reader does not understand.
type Prober interface {
	Probe(ctx context.Context, path string) (model.Metadata, error)
}

// Reader extracts track metadata from source files.
//
// Tags are read natively with dhowden/tag (FLAC, MP3, MP4/ALAC, OGG). When
// that fails or finds nothing, the optional Prober is asked instead,
// which covers WAV, AIFF, APE and WavPack.
type Reader struct {
	prober Prober
}

// NewReader creates a Reader. prober may be nil, in which case files the
// native reader cannot parse yield only their SourceName.
func NewReader(prober Prober) *Reader {
	return &Reader{prober: prober}
}

// Read returns the metadata of path.
//
// SourceName is always set. Other keys are only present when the file
// carries the corresponding tag. An error is returned only when the file
// cannot be opened.
func (r *Reader) Read(ctx context.Context, path string) (model.Metadata, error) {
	meta := model.Metadata{
		model.KeySourceName: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
	}

	native, err := readNative(path)
	if err != nil && !errors.Is(err, tag.ErrNoTagsFound) {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) {
			return nil, fmt.Errorf("read tags: %w", err)
		}
		log.Emit(logger.DEBUG, "native tag reader failed for %s: %v\n", path, err)
	}

	if len(native) == 0 && r.prober != nil {
		probed, perr := r.prober.Probe(ctx, path)
		if perr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Emit(logger.DEBUG, "probe failed for %s: %v\n", path, perr)
		} else {
			native = probed
		}
	}

	return meta.Merge(native), nil
}

func readNative(path string) (model.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	return fromTag(m), nil
}

func fromTag(m tag.Metadata) model.Metadata {
	meta := model.Metadata{}
	meta.SetIfPresent(model.KeyArtistName, m.Artist())
	meta.SetIfPresent(model.KeyAlbumArtist, m.AlbumArtist())
	meta.SetIfPresent(model.KeyAlbumTitle, m.Album())
	meta.SetIfPresent(model.KeyTrackTitle, m.Title())
	meta.SetIfPresent(model.KeyGenre, m.Genre())

	if year := m.Year(); year > 0 {
		meta[model.KeyAlbumYear] = strconv.Itoa(year)
	}
	if track, _ := m.Track(); track > 0 {
		meta[model.KeyTrackNumber] = model.NormalizeNumber(strconv.Itoa(track))
	}
	if disc, _ := m.Disc(); disc > 0 {
		meta[model.KeyDiscNumber] = model.NormalizeNumber(strconv.Itoa(disc))
	}

	return meta
}

// EmbeddedPicture returns the picture stored in the tags of path, or nil
// when there is none.
func EmbeddedPicture(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if errors.Is(err, tag.ErrNoTagsFound) {
			return nil, nil
		}
		return nil, err
	}

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		return pic.Data, nil
	}
	return nil, nil
}
