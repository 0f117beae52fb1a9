package ffmpeg

import (
	"fmt"
	"sort"

	"github.com/floostack/transcoder/ffmpeg"

	"github.com/handiism/metronome/internal/model"
)

// Default bitrates per target, matching what a lossless source can carry
// without audible loss.
const (
	DefaultMP3Bitrate  = "320k"
	DefaultOpusBitrate = "384k"
)

// Options are the user tunable encoder settings.
type Options struct {
	// Bitrate overrides the target's default bitrate, e.g. "256k".
	Bitrate string

	// Strip drops every source tag from the output.
	Strip bool
}

// tagNames maps metadata keys to the tag names ffmpeg writes for them.
var tagNames = map[string]string{
	model.KeyArtistName:  "artist",
	model.KeyAlbumArtist: "album_artist",
	model.KeyAlbumTitle:  "album",
	model.KeyAlbumYear:   "date",
	model.KeyTrackNumber: "track",
	model.KeyTrackTitle:  "title",
	model.KeyDiscNumber:  "disc",
	model.KeyGenre:       "genre",
}

// EncoderOptions returns the encoder settings for target as ffmpeg options.
func EncoderOptions(target model.TargetFormat, opts Options) (*ffmpeg.Options, error) {
	overwrite := true
	format := target.Extension()

	mapMetadata := "0"
	if opts.Strip {
		mapMetadata = "-1"
	}

	switch target {
	case model.TargetMP3:
		codec, cover := "libmp3lame", "copy"
		return &ffmpeg.Options{
			AudioCodec:   &codec,
			VideoCodec:   &cover,
			OutputFormat: &format,
			Overwrite:    &overwrite,
			ExtraArgs: map[string]interface{}{
				"-b:a":           bitrateOr(opts.Bitrate, DefaultMP3Bitrate),
				"-id3v2_version": "3",
				"-map_metadata":  mapMetadata,
			},
		}, nil

	case model.TargetOpus:
		codec, noVideo := "libopus", true
		return &ffmpeg.Options{
			AudioCodec:   &codec,
			SkipVideo:    &noVideo,
			OutputFormat: &format,
			Overwrite:    &overwrite,
			ExtraArgs: map[string]interface{}{
				"-b:a":               bitrateOr(opts.Bitrate, DefaultOpusBitrate),
				"-vbr":               "on",
				"-compression_level": "10",
				"-map_metadata":      mapMetadata,
			},
		}, nil
	}

	return nil, fmt.Errorf("unsupported target format %q", target)
}

// Args builds the output arguments for one conversion: the encoder
// settings for target followed by a -metadata pair for every value in
// tags. tags is only passed for enriched tracks; nil keeps the source's
// own tags as mapped by -map_metadata.
func Args(target model.TargetFormat, opts Options, tags model.Metadata) ([]string, error) {
	encoder, err := EncoderOptions(target, opts)
	if err != nil {
		return nil, err
	}

	args := encoder.GetStrArguments()
	if opts.Strip {
		return args, nil
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		if _, ok := tagNames[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", tagNames[k], tags[k]))
	}

	return args, nil
}

func bitrateOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
