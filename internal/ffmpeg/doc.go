// Package ffmpeg drives the ffmpeg and ffprobe binaries.
//
// Encoder settings are described with floostack/transcoder's ffmpeg.Options
// and flattened to an argument list; the process itself runs through the
// tool package so tests can substitute a fake binary.
//
// # Targets
//
//	mp3   libmp3lame, 320k, ID3v2.3, embedded cover art copied
//	opus  libopus, 384k VBR, compression level 10, no video stream
//
// Source tags are carried over with -map_metadata 0 unless stripping is
// requested. Tags found by fingerprint analysis are added as -metadata
// pairs.
//
// # Conversion
//
//	conv := ffmpeg.NewConverter(ffmpegTool, ffmpeg.Options{Bitrate: "256k"})
//	if err := conv.Convert(ctx, job, tmp); err != nil {
//	    var convErr *ffmpeg.ConversionError
//	    if errors.As(err, &convErr) {
//	        fmt.Println(convErr.Diagnostic)
//	    }
//	}
package ffmpeg
