// Package format renders destination paths from user supplied naming
// templates.
//
// A template mixes literal text with {Placeholder} references and uses '/'
// to describe folders:
//
//	tmpl, err := format.Parse("{ArtistName}/{AlbumTitle} [{AlbumYear}]/{TrackNumber} - {TrackTitle}.{Extension}")
//	rel, err := tmpl.Render(meta) // "Artist/Album [2001]/01 - Song.mp3"
//
// Every segment of the result is passed through ioutils.SanitizeSegment, so
// rendered paths never contain characters that are illegal on common file
// systems and never contain an empty segment.
//
// Available placeholders: {ArtistName}, {AlbumArtist}, {AlbumTitle},
// {AlbumYear}, {TrackNumber}, {TrackTitle}, {DiscNumber}, {Genre},
// {Extension}, {SourceName}
package format
