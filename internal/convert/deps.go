package convert

import (
	"errors"
	"fmt"

	"github.com/handiism/metronome/internal/analysis"
	"github.com/handiism/metronome/internal/audio"
	"github.com/handiism/metronome/internal/config"
	"github.com/handiism/metronome/internal/ffmpeg"
	ioutils "github.com/handiism/metronome/internal/io"
	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/tool"
)

// Tools are the external binaries of a run. FFprobe and Fpcalc are nil
// when they were not found.
type Tools struct {
	FFmpeg  tool.Tool
	FFprobe tool.Tool
	Fpcalc  tool.Tool
}

// LocateTools finds the binaries on PATH or in settings.BinDir. A
// missing ffmpeg is a *config.ConfigError; the other tools are optional.
func LocateTools(settings *config.Settings) (*Tools, error) {
	path, err := tool.Locate("ffmpeg", settings.BinDir)
	if err != nil {
		return nil, &config.ConfigError{Field: "bin_dir", Reason: "ffmpeg is required", Err: err}
	}
	tools := &Tools{FFmpeg: tool.New(path, settings.Timeout)}

	if path, err := tool.Locate("ffprobe", settings.BinDir); err == nil {
		tools.FFprobe = tool.New(path, settings.Timeout)
	} else {
		log.Emit(logger.WARNING, "ffprobe not found, WAV/AIFF/APE tags will not be read\n")
	}

	if settings.Analyze {
		if path, err := tool.Locate("fpcalc", settings.BinDir); err == nil {
			tools.Fpcalc = tool.New(path, settings.Timeout)
		} else {
			log.Emit(logger.WARNING, "fpcalc not found, tracks will not be identified\n")
		}
	}

	return tools, nil
}

// NewDeps builds the collaborators a Dispatcher needs for settings.
func NewDeps(settings *config.Settings, tools *Tools) (Deps, error) {
	var prober audio.Prober
	if tools.FFprobe != nil {
		prober = ffmpeg.NewProber(tools.FFprobe)
	}

	deps := Deps{
		Reader: audio.NewReader(prober),
		Transcoder: ffmpeg.NewConverter(tools.FFmpeg, ffmpeg.Options{
			Bitrate: settings.Bitrate,
			Strip:   settings.Strip,
		}),
		Tagger: audio.NewTagger(nil),
	}

	if settings.Analyze {
		client, err := analysis.NewClient(tools.Fpcalc, analysis.Config{APIKey: settings.AcoustIDKey})
		switch {
		case errors.Is(err, analysis.ErrAnalysisUnavailable):
			log.Emit(logger.WARNING, "Analysis disabled: %v\n", err)
		case err != nil:
			return Deps{}, err
		default:
			deps.Identifier = client
		}
	}

	if settings.CoverArt {
		deps.Cover = audio.NewCoverArt(ioutils.NewImageService(), settings.CoverArtSize)
	}

	if settings.Playlist {
		format, err := audio.ParsePlaylistFormat(settings.PlaylistFormat)
		if err != nil {
			return Deps{}, &config.ConfigError{Field: "playlist_format", Reason: fmt.Sprintf("unknown format %q", settings.PlaylistFormat), Err: err}
		}
		deps.Playlist = audio.NewPlaylistCreator(format, true)
	}

	return deps, nil
}
