package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/handiism/metronome/internal/model"
	"github.com/handiism/metronome/internal/tool"
)

type probeOutput struct {
	Format struct {
		FormatName string            `json:"format_name"`
		Duration   string            `json:"duration"`
		Tags       map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType string            `json:"codec_type"`
		Tags      map[string]string `json:"tags"`
	} `json:"streams"`
}

// Prober reads container tags with ffprobe. It covers the formats the
// native tag reader cannot parse (WAV, AIFF, APE, WavPack).
type Prober struct {
	ffprobe tool.Tool
}

// NewProber returns a Prober that runs ffprobe through t.
func NewProber(t tool.Tool) *Prober {
	return &Prober{ffprobe: t}
}

// Probe returns the tags of path. Keys with no matching tag are absent.
func (p *Prober) Probe(ctx context.Context, path string) (model.Metadata, error) {
	res, err := p.ffprobe.Invoke(ctx, "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path)
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("ffprobe %s: exit status %d: %s", path, res.ExitCode, res.Diagnostic())
	}

	var out probeOutput
	if err := json.Unmarshal(res.Stdout, &out); err != nil {
		return nil, fmt.Errorf("decode ffprobe output for %s: %w", path, err)
	}

	// Ogg based containers keep their comments on the audio stream.
	tags := map[string]string{}
	for _, s := range out.Streams {
		if s.CodecType == "audio" {
			for k, v := range s.Tags {
				tags[strings.ToLower(k)] = v
			}
		}
	}
	for k, v := range out.Format.Tags {
		tags[strings.ToLower(k)] = v
	}

	return MetadataFromTags(tags), nil
}

// MetadataFromTags converts free form tag names, matched case-insensitively,
// to metadata keys. Unknown tags are ignored.
//
// Example:
//
//	MetadataFromTags(map[string]string{"ARTIST": "A", "track": "3/12"})
//	// model.Metadata{"ArtistName": "A", "TrackNumber": "03"}
func MetadataFromTags(tags map[string]string) model.Metadata {
	meta := model.Metadata{}
	years := map[string]string{}

	for name, value := range tags {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}

		switch strings.ToLower(name) {
		case "artist":
			meta[model.KeyArtistName] = value
		case "album_artist", "album artist", "albumartist":
			meta[model.KeyAlbumArtist] = value
		case "album":
			meta[model.KeyAlbumTitle] = value
		case "title":
			meta[model.KeyTrackTitle] = value
		case "genre":
			meta[model.KeyGenre] = value
		case "date", "year", "originaldate":
			years[strings.ToLower(name)] = value
		case "track", "tracknumber":
			meta[model.KeyTrackNumber] = model.NormalizeNumber(value)
		case "disc", "discnumber":
			meta[model.KeyDiscNumber] = model.NormalizeNumber(value)
		}
	}

	// date wins over year, which wins over originaldate.
	for _, key := range []string{"date", "year", "originaldate"} {
		if value, ok := years[key]; ok {
			meta[model.KeyAlbumYear] = model.NormalizeYear(value)
			break
		}
	}

	return meta
}
