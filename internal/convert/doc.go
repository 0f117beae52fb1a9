// Package convert turns a directory of lossless audio into MP3 or Opus.
//
// # Dispatcher
//
// The Dispatcher runs the whole conversion:
//
//  1. Enumerate eligible files below the input directory
//  2. Read their tags, optionally identify them by fingerprint
//  3. Render each destination from the naming template, or mirror the
//     input tree when no template is set
//  4. Apply the collision policy
//  5. Convert the files concurrently
//  6. Write folder art and playlists (optional)
//
// # Basic Usage
//
//	d, err := convert.NewDispatcher(settings, convert.Deps{
//	    Reader:     audio.NewReader(prober),
//	    Transcoder: ffmpeg.NewConverter(ffmpegTool, ffmpeg.Options{}),
//	}, func(event convert.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	summary, err := d.Run(ctx)
//
// # Atomic Output
//
// Every job writes into a hidden temporary file in its destination
// directory and renames it into place after tagging. A failed or
// cancelled job removes its temporary file, so a destination path either
// holds a complete file or nothing.
package convert
