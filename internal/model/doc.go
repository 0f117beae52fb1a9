// Package model defines the core data structures shared by the metronome
// packages.
//
// # Metadata
//
// Metadata maps placeholder keys (ArtistName, AlbumTitle, TrackNumber, ...)
// to values read from a source file, optionally overlaid with enrichment:
//
//	meta := model.Metadata{model.KeyArtistName: "Artist"}
//	meta = meta.Merge(enriched)
//
// # Job
//
// Job describes the conversion of one source file into its rendered
// destination path:
//
//	job := model.NewJob(src, rel, meta, false, model.TargetMP3, dest)
//
// # Summary
//
// Summary collects the converted/skipped/failed counts of a run along with
// the reason for every failure.
package model
