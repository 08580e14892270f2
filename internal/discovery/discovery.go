// Package discovery finds sample shard files under a directory tree.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrInvalidPattern reports an exclude pattern doublestar cannot parse.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Options controls how file discovery behaves.
type Options struct {
	// Root is the directory to walk. It must exist.
	Root string

	// Extension selects files whose base name ends with it, e.g. ".json".
	// An empty extension selects every regular file.
	Extension string

	// Exclude lists doublestar patterns, relative to Root with forward
	// slashes. A matching directory is skipped entirely.
	Exclude []string
}

// Find walks Root and returns the matching files in sorted order.
// A missing or unreadable root, or any error during the walk, is returned.
func Find(opts Options) ([]string, error) {
	for _, p := range opts.Exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("%w %q", ErrInvalidPattern, p)
		}
	}

	info, err := os.Stat(opts.Root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "walk", Path: opts.Root, Err: errors.New("not a directory")}
	}

	w := &walker{root: opts.Root, ext: opts.Extension, exclude: opts.Exclude}
	if err := filepath.WalkDir(opts.Root, w.visit); err != nil {
		return nil, err
	}

	sort.Strings(w.result)
	return w.result, nil
}

// walker holds state for the directory walk.
type walker struct {
	root    string
	ext     string
	exclude []string
	result  []string
}

// visit is the fs.WalkDirFunc callback.
func (w *walker) visit(path string, d fs.DirEntry, walkErr error) error {
	if walkErr != nil {
		return walkErr
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return err
	}
	if rel == "." {
		return nil
	}

	if w.excluded(filepath.ToSlash(rel)) {
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}

	if d.IsDir() || !strings.HasSuffix(d.Name(), w.ext) {
		return nil
	}
	if d.Type()&fs.ModeSymlink != 0 {
		// Links to files are read through; links to directories are not
		// walked. A dangling link is kept so reading it reports the error.
		if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() {
			return nil
		}
	} else if !d.Type().IsRegular() {
		return nil
	}
	w.result = append(w.result, path)
	return nil
}

// excluded returns true if rel matches any exclude pattern.
func (w *walker) excluded(rel string) bool {
	for _, p := range w.exclude {
		if matched, err := doublestar.Match(p, rel); err == nil && matched {
			return true
		}
	}
	return false
}
