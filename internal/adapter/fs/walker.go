// Package fs discovers candidate files for embedding jobs.
package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/nexgen-tech-labs/infrajet-embeddings/internal/port"
)

// FileInfo describes one discovered candidate file.
type FileInfo struct {
	Path    string // absolute
	RelPath string // relative to the walk root, slash-separated
	Size    int64
}

// Walker filters a directory tree down to embeddable files. Dot files, dot
// directories and exclude-glob matches are skipped; discovery is capped at
// maxFiles by keeping the first N in walk order (documented limitation, not
// a sampling policy).
type Walker struct {
	extensions map[string]bool
	excludes   []string
	maxFiles   int
}

// NewWalker creates a walker for the given extensions (with leading dots,
// e.g. ".tf") and exclude globs.
func NewWalker(extensions, excludes []string, maxFiles int) *Walker {
	extSet := make(map[string]bool, len(extensions))
	for _, e := range extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		extSet[strings.ToLower(e)] = true
	}
	if maxFiles <= 0 {
		maxFiles = 500
	}
	return &Walker{extensions: extSet, excludes: excludes, maxFiles: maxFiles}
}

// Discover returns candidate files under root. recursive=false limits the
// walk to root's direct children. The boolean reports whether the maxFiles
// cap truncated the result.
func (w *Walker) Discover(root string, recursive bool) ([]FileInfo, bool, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, false, fmt.Errorf("%w: %s", port.ErrInvalidPath, root)
	}

	var files []FileInfo
	truncated := false

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if !recursive || w.skipDir(d.Name(), rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if truncated {
			return filepath.SkipAll
		}
		if !w.accept(d.Name(), rel) {
			return nil
		}

		fi, infoErr := d.Info()
		if infoErr != nil {
			return nil // vanished between list and stat, skip
		}
		if len(files) >= w.maxFiles {
			truncated = true
			return filepath.SkipAll
		}
		files = append(files, FileInfo{Path: path, RelPath: rel, Size: fi.Size()})
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, truncated, nil
}

func (w *Walker) skipDir(name, rel string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, pattern := range w.excludes {
		if ok, err := doublestar.Match(pattern, rel+"/"); err == nil && ok {
			return true
		}
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

func (w *Walker) accept(name, rel string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(w.extensions) > 0 && !w.extensions[strings.ToLower(filepath.Ext(name))] {
		return false
	}
	for _, pattern := range w.excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return false
		}
	}
	return true
}
