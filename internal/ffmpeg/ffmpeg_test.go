package ffmpeg

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handiism/metronome/internal/model"
	"github.com/handiism/metronome/internal/tool"
)

// hasPair reports whether flag is immediately followed by value in args.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestArgs(t *testing.T) {
	tests := []struct {
		name    string
		target  model.TargetFormat
		opts    Options
		want    [][2]string
		wantOne []string
	}{
		{
			name:    "mp3 defaults",
			target:  model.TargetMP3,
			want:    [][2]string{{"-c:a", "libmp3lame"}, {"-b:a", "320k"}, {"-id3v2_version", "3"}, {"-c:v", "copy"}, {"-f", "mp3"}, {"-map_metadata", "0"}},
			wantOne: []string{"-y"},
		},
		{
			name:    "opus defaults",
			target:  model.TargetOpus,
			want:    [][2]string{{"-c:a", "libopus"}, {"-b:a", "384k"}, {"-vbr", "on"}, {"-compression_level", "10"}, {"-f", "opus"}},
			wantOne: []string{"-vn", "-y"},
		},
		{
			name:   "bitrate override and strip",
			target: model.TargetMP3,
			opts:   Options{Bitrate: "192k", Strip: true},
			want:   [][2]string{{"-b:a", "192k"}, {"-map_metadata", "-1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := Args(tt.target, tt.opts, nil)
			require.NoError(t, err)
			for _, p := range tt.want {
				assert.True(t, hasPair(args, p[0], p[1]), "missing %s %s in %v", p[0], p[1], args)
			}
			for _, f := range tt.wantOne {
				assert.Contains(t, args, f)
			}
		})
	}
}

func TestArgs_UnsupportedTarget(t *testing.T) {
	_, err := Args(model.TargetFormat("wma"), Options{}, nil)
	assert.Error(t, err)
}

func TestArgs_EnrichedTags(t *testing.T) {
	tags := model.Metadata{
		model.KeyArtistName: "Artist",
		model.KeyAlbumYear:  "2001",
		model.KeyExtension:  "mp3",
	}

	args, err := Args(model.TargetMP3, Options{}, tags)
	require.NoError(t, err)
	assert.True(t, hasPair(args, "-metadata", "artist=Artist"))
	assert.True(t, hasPair(args, "-metadata", "date=2001"))
	assert.False(t, hasPair(args, "-metadata", "Extension=mp3"))

	stripped, err := Args(model.TargetMP3, Options{Strip: true}, tags)
	require.NoError(t, err)
	assert.NotContains(t, stripped, "-metadata")
}

func TestConverter_CommandLine(t *testing.T) {
	job := model.NewJob("/in/a.flac", "a.flac", model.Metadata{}, false, model.TargetMP3, "/out/a.mp3")
	conv := NewConverter(tool.Func(nil), Options{})

	args, err := conv.CommandLine(job, "/out/.tmp.part")
	require.NoError(t, err)
	assert.Equal(t, []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", "/in/a.flac"}, args[:6])
	assert.Equal(t, "/out/.tmp.part", args[len(args)-1])
}

func TestConverter_Convert(t *testing.T) {
	job := model.NewJob("/in/a.flac", "a.flac", model.Metadata{}, false, model.TargetOpus, "/out/a.opus")

	t.Run("success", func(t *testing.T) {
		ok := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
			return &tool.Result{}, nil
		})
		assert.NoError(t, NewConverter(ok, Options{}).Convert(context.Background(), job, "/tmp/x"))
	})

	t.Run("non-zero exit", func(t *testing.T) {
		failing := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
			return &tool.Result{ExitCode: 1, Stderr: []byte("Invalid data found when processing input\n")}, nil
		})

		err := NewConverter(failing, Options{}).Convert(context.Background(), job, "/tmp/x")

		var convErr *ConversionError
		require.True(t, errors.As(err, &convErr))
		assert.Equal(t, 1, convErr.ExitCode)
		assert.Equal(t, "/in/a.flac", convErr.Source)
		assert.Equal(t, "Invalid data found when processing input", convErr.Diagnostic)
	})

	t.Run("timeout", func(t *testing.T) {
		slow := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
			return &tool.Result{ExitCode: -1}, tool.ErrTimeout
		})

		err := NewConverter(slow, Options{}).Convert(context.Background(), job, "/tmp/x")

		var convErr *ConversionError
		require.True(t, errors.As(err, &convErr))
		assert.ErrorIs(t, err, tool.ErrTimeout)
	})

	t.Run("cancelled", func(t *testing.T) {
		cancelled := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
			return nil, context.Canceled
		})

		err := NewConverter(cancelled, Options{}).Convert(context.Background(), job, "/tmp/x")
		assert.Equal(t, context.Canceled, err)
	})
}

func TestProber_Probe(t *testing.T) {
	out := `{
		"streams": [{"codec_type": "audio", "tags": {"TITLE": "Stream Title", "GENRE": "Jazz"}}],
		"format": {
			"format_name": "wav",
			"tags": {"title": "Song", "ARTIST": "Artist", "album": "Album", "date": "2001-05-01", "track": "1/10"}
		}
	}`
	ffprobe := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
		assert.Equal(t, "/in/a.wav", args[len(args)-1])
		return &tool.Result{Stdout: []byte(out)}, nil
	})

	meta, err := NewProber(ffprobe).Probe(context.Background(), "/in/a.wav")
	require.NoError(t, err)
	assert.Equal(t, model.Metadata{
		model.KeyTrackTitle:  "Song",
		model.KeyArtistName:  "Artist",
		model.KeyAlbumTitle:  "Album",
		model.KeyAlbumYear:   "2001",
		model.KeyTrackNumber: "01",
		model.KeyGenre:       "Jazz",
	}, meta)
}

func TestProber_Failures(t *testing.T) {
	bad := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
		return &tool.Result{Stdout: []byte("not json")}, nil
	})
	_, err := NewProber(bad).Probe(context.Background(), "x")
	assert.Error(t, err)

	failing := tool.Func(func(ctx context.Context, args ...string) (*tool.Result, error) {
		return &tool.Result{ExitCode: 1}, nil
	})
	_, err = NewProber(failing).Probe(context.Background(), "x")
	assert.Error(t, err)
}

func TestMetadataFromTags_YearPriority(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"year over originaldate", map[string]string{"year": "1999", "originaldate": "1985-03-01"}, "1999"},
		{"date over year", map[string]string{"date": "2004-05-06", "year": "1999"}, "2004"},
		{"date over everything", map[string]string{"date": "2004", "year": "1999", "originaldate": "1985"}, "2004"},
		{"originaldate alone", map[string]string{"originaldate": "1985-03-01"}, "1985"},
		{"upper-case keys", map[string]string{"YEAR": "1999", "ORIGINALDATE": "1985"}, "1999"},
		{"blank date is ignored", map[string]string{"date": "  ", "year": "1999"}, "1999"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Map iteration order varies between calls.
			for range 50 {
				meta := MetadataFromTags(tt.tags)
				require.Equal(t, tt.want, meta[model.KeyAlbumYear])
			}
		})
	}
}
