package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnumerationError reports a directory entry that could not be read. The
// entry is skipped and enumeration continues.
type EnumerationError struct {
	Path string
	Err  error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("skipping %s: %v", e.Path, e.Err)
}

func (e *EnumerationError) Unwrap() error {
	return e.Err
}

// Source is an eligible input file.
type Source struct {
	// Path is the file's absolute path.
	Path string

	// Rel is Path relative to the input directory, through any followed
	// symlinks.
	Rel string
}

type enumerator struct {
	exts    map[string]bool
	exclude map[string]bool
	visited map[string]bool
	onError func(*EnumerationError)
	sources []Source
}

// Enumerate lists the files below root whose lower-case extension is in
// exts, in lexical order.
//
// Symlinked directories are followed; every directory is entered at most
// once, identified by its resolved path, so symlink loops terminate.
// Directories in exclude (typically an output directory nested inside the
// input) and hidden entries are skipped. Unreadable entries are reported
// to onError and skipped. Only an unreadable root is an error.
func Enumerate(root string, exts map[string]bool, exclude []string, onError func(*EnumerationError)) ([]Source, error) {
	if onError == nil {
		onError = func(*EnumerationError) {}
	}

	e := &enumerator{
		exts:    exts,
		exclude: map[string]bool{},
		visited: map[string]bool{},
		onError: onError,
	}
	for _, dir := range exclude {
		if abs, err := filepath.Abs(dir); err == nil {
			e.exclude[abs] = true
		}
		if real, err := filepath.EvalSymlinks(dir); err == nil {
			e.exclude[real] = true
		}
	}

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.ReadDir(root); err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}

	e.walk(root, "")
	return e.sources, nil
}

func (e *enumerator) walk(dir, rel string) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		e.onError(&EnumerationError{Path: dir, Err: err})
		return
	}
	if e.visited[real] || e.exclude[real] || e.exclude[dir] {
		return
	}
	e.visited[real] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		e.onError(&EnumerationError{Path: dir, Err: err})
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		path := filepath.Join(dir, name)
		relPath := filepath.Join(rel, name)

		mode := entry.Type()
		if mode&os.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil {
				e.onError(&EnumerationError{Path: path, Err: err})
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			e.walk(path, relPath)
		case mode.IsRegular() && e.eligible(name):
			e.sources = append(e.sources, Source{Path: path, Rel: relPath})
		}
	}
}

func (e *enumerator) eligible(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	return ext != "" && e.exts[ext]
}
