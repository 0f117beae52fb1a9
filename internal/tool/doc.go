// Package tool is the boundary between metronome and the external
// binaries it drives (ffmpeg, ffprobe and fpcalc).
//
// # Invoking a binary
//
//	path, err := tool.Locate("ffmpeg", settings.BinDir)
//	ffmpeg := tool.New(path, settings.Timeout)
//	res, err := ffmpeg.Invoke(ctx, "-version")
//	if err == nil && !res.Success() {
//	    fmt.Println(res.Diagnostic())
//	}
//
// # Testing
//
// Func and Recorder let tests replace a binary with Go code and observe
// how often, and how concurrently, it was called.
package tool
