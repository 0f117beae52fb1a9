// Package audio reads tags from source tracks and post-processes converted
// ones: ID3 tag writing, cover art and playlist generation.
//
// # Reading metadata
//
//	reader := audio.NewReader(ffmpeg.NewProber(ffprobeTool))
//	meta, err := reader.Read(ctx, "/music/Artist/Album/01.flac")
//
// Tags are read with dhowden/tag; formats it cannot parse fall back to
// the Prober.
//
// # ID3 Tagging
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	err := tagger.SaveTags(path, meta, coverJPEG)
//
// # Cover Art
//
// CoverArt prefers the picture embedded in the source and otherwise looks
// for cover.jpg, folder.jpg or front.jpg (or a PNG) next to it.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.FormatM3U, true) // extended M3U
//	content := creator.CreatePlaylist(audio.NewPlaylist("Album", entries))
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
