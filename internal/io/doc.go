// Package ioutils provides file system and image processing utilities.
//
// # Path Sanitization
//
// Every directory segment and file name metronome writes is cleaned so that
// it is valid on Linux, macOS and Windows alike:
//
//	safe := ioutils.SanitizeSegment("AC/DC")           // "AC_DC"
//	name := ioutils.SanitizeFileName("Song: Part 1.mp3") // "Song_ Part 1.mp3"
//
// Sanitization never fails: a name that becomes empty is replaced with "_".
//
// # File Operations
//
//	// Ensure directory exists (safe to call concurrently)
//	err := ioutils.EnsureDir("/out/Artist/Album")
//
//	// Write a finished conversion into place
//	err := ioutils.Commit(ioutils.TempPath(dest, id), dest)
//
// # Image Processing
//
// The ImageService prepares cover art:
//
//	svc := ioutils.NewImageService()
//	jpeg, _ := svc.ResizeImage(ctx, imageData, 1000, 1000)
package ioutils
