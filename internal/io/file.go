package ioutils

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxSegmentBytes is the longest directory or file name we produce.
	// 255 bytes is the limit for ext4, APFS, NTFS and most other file systems.
	MaxSegmentBytes = 255

	// Placeholder replaces a segment that is empty after sanitization.
	Placeholder = "_"

	// maxExtBytes bounds what counts as an extension worth preserving.
	maxExtBytes = 16
)

var (
	// Characters: < > : " / \ | ? * and control characters (0x00-0x1f, 0x7f)
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	reservedNames  = regexp.MustCompile(`(?i)^(con|prn|aux|nul|com[1-9]|lpt[1-9])(\..*)?$`)
)

// SanitizeSegment cleans a single directory name so it is valid on every
// common file system.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars) → underscore
//   - Runs of whitespace → single space
//   - Leading and trailing spaces and dots → removed
//   - Windows device names (CON, NUL, COM1, ...) → prefixed with underscore
//   - Longer than MaxSegmentBytes → truncated on a UTF-8 boundary
//   - Empty result → Placeholder
//
// Example:
//
//	SanitizeSegment("AC/DC")          // Returns "AC_DC"
//	SanitizeSegment("  Live...  ")    // Returns "Live"
//	SanitizeSegment("..")             // Returns "_"
func SanitizeSegment(name string) string {
	return sanitize(name, false)
}

// SanitizeFileName is SanitizeSegment for the final path element: when
// the name has to be truncated its extension is preserved.
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2.mp3") // Returns "Song_ Part 1_2.mp3"
func SanitizeFileName(name string) string {
	return sanitize(name, true)
}

func sanitize(name string, keepExt bool) string {
	name = strings.ToValidUTF8(name, Placeholder)
	name = invalidChars.ReplaceAllString(name, "_")
	name = whitespaceRuns.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")
	if name == "" {
		return Placeholder
	}

	if reservedNames.MatchString(name) {
		name = "_" + name
	}

	name = truncate(name, MaxSegmentBytes, keepExt)
	name = strings.TrimRight(name, " .")
	if name == "" {
		return Placeholder
	}

	return name
}

// truncate shortens name to at most limit bytes without splitting a rune.
func truncate(name string, limit int, keepExt bool) string {
	if len(name) <= limit {
		return name
	}

	if keepExt {
		ext := filepath.Ext(name)
		if ext != "" && len(ext) <= maxExtBytes && len(ext) < len(name) {
			stem := truncateUTF8(strings.TrimSuffix(name, ext), limit-len(ext))
			stem = strings.TrimRight(stem, " .")
			if stem == "" {
				stem = Placeholder
			}
			return stem + ext
		}
	}

	return truncateUTF8(name, limit)
}

func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// SuffixFileName inserts suffix between the stem and the extension of a
// sanitized file name. The stem is shortened on a UTF-8 boundary so the
// result still fits in MaxSegmentBytes.
//
// Example:
//
//	SuffixFileName("01 - Song.mp3", " (1)") // Returns "01 - Song (1).mp3"
func SuffixFileName(name, suffix string) string {
	ext := filepath.Ext(name)
	if len(ext) > maxExtBytes || ext == name {
		ext = ""
	}

	stem := strings.TrimSuffix(name, ext)
	stem = truncateUTF8(stem, max(0, MaxSegmentBytes-len(suffix)-len(ext)))
	stem = strings.TrimRight(stem, " .")
	if stem == "" {
		stem = Placeholder
	}

	return stem + suffix + ext
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x). Concurrent calls for
// the same path are safe: an already existing directory is not an error.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// CheckWritable verifies that dir exists (creating it if needed) and that a
// file can be created inside it.
func CheckWritable(dir string) error {
	if err := EnsureDir(dir); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".metronome-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// CopyFile copies a file from source to destination.
//
// The destination file is created with mode 0644 if it doesn't exist,
// or truncated if it does. The source file must exist and be readable.
//
// Example:
//
//	err := CopyFile(ctx, "/library/Album/folder.jpg", "/out/Album/cover.jpg")
func CopyFile(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		os.Remove(dst)
		return err
	}

	return destFile.Close()
}

// WriteFile writes data to path atomically.
//
// The data is first written to a temporary file in the same directory and
// then renamed over path, so readers never observe a partially written file.
//
// Example:
//
//	playlistContent := []byte("#EXTM3U\n...")
//	err := WriteFile(ctx, "/music/Artist/Album/Album.m3u", playlistContent)
func WriteFile(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// TempPath returns a hidden sibling of dest named after id, used as the
// write target of an in-progress conversion.
//
// Example:
//
//	TempPath("/out/Artist/01 - Song.mp3", "5f1c...") // "/out/Artist/.5f1c....part"
func TempPath(dest, id string) string {
	return filepath.Join(filepath.Dir(dest), fmt.Sprintf(".%s.part", id))
}

// Commit moves a finished temporary file into place.
func Commit(tmp, dest string) error {
	return os.Rename(tmp, dest)
}

// RemoveQuietly deletes path, ignoring a missing file.
func RemoveQuietly(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists reports whether anything exists at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
