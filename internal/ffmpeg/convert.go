package ffmpeg

import (
	"context"
	"errors"
	"fmt"

	"github.com/handiism/metronome/internal/logger"
	"github.com/handiism/metronome/internal/model"
	"github.com/handiism/metronome/internal/tool"
)

var log = logger.Get("FFmpeg")

// ConversionError is returned when ffmpeg fails for a source file. The
// diagnostic is ffmpeg's own output, kept verbatim for the report.
type ConversionError struct {
	Source     string
	ExitCode   int
	Diagnostic string
	Err        error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("convert %s: %v", e.Source, e.Err)
	}
	if e.Diagnostic == "" {
		return fmt.Sprintf("convert %s: ffmpeg exited with status %d", e.Source, e.ExitCode)
	}
	return fmt.Sprintf("convert %s: ffmpeg exited with status %d: %s", e.Source, e.ExitCode, e.Diagnostic)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Converter transcodes source files with ffmpeg.
type Converter struct {
	ffmpeg tool.Tool
	opts   Options
}

// NewConverter returns a Converter that runs ffmpeg through t.
func NewConverter(t tool.Tool, opts Options) *Converter {
	return &Converter{ffmpeg: t, opts: opts}
}

// CommandLine returns the full ffmpeg argument list that converts job
// into output.
func (c *Converter) CommandLine(job *model.Job, output string) ([]string, error) {
	var tags model.Metadata
	if job.Enriched {
		tags = job.Metadata
	}

	encoder, err := Args(job.Target, c.opts, tags)
	if err != nil {
		return nil, err
	}

	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin", "-i", job.Source}
	args = append(args, encoder...)
	return append(args, output), nil
}

// Convert encodes job.Source into output.
//
// output is normally a temporary path next to job.Destination; the caller
// renames it once every post-processing step succeeded. A cancelled ctx is
// returned as is, every other failure as a *ConversionError.
func (c *Converter) Convert(ctx context.Context, job *model.Job, output string) error {
	args, err := c.CommandLine(job, output)
	if err != nil {
		return &ConversionError{Source: job.Source, ExitCode: -1, Err: err}
	}

	res, err := c.ffmpeg.Invoke(ctx, args...)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		conv := &ConversionError{Source: job.Source, ExitCode: -1, Err: err}
		if res != nil {
			conv.Diagnostic = res.Diagnostic()
		}
		return conv
	}

	if !res.Success() {
		log.Emit(logger.DEBUG, "ffmpeg failed for %s (status %d)\n", job.Source, res.ExitCode)
		return &ConversionError{Source: job.Source, ExitCode: res.ExitCode, Diagnostic: res.Diagnostic()}
	}

	return nil
}
