// Package fsutil provides the directory-enumeration helpers the storage
// engine needs: listing files by extension, and by extension plus a size
// ceiling. Entries that cannot be stat'd are skipped rather than failing
// the whole call; callers impose whatever ordering they need.
package fsutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ListByExtension returns the full paths of every regular file directly
// under dir whose extension equals ext (ext without a leading dot, e.g.
// "db" or "wal"). The result is unordered.
func ListByExtension(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	suffix := "." + ext
	var out []string
	for _, d := range entries {
		if d.IsDir() {
			continue
		}
		name := d.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ListByExtensionUnderSize returns ListByExtension's result further
// filtered to files whose size is strictly less than maxBytes. Paths that
// fail to stat are skipped rather than propagating an error, since a file
// can legitimately vanish between the directory read and the stat call
// (e.g. a concurrent compactor).
func ListByExtensionUnderSize(dir, ext string, maxBytes int64) ([]string, error) {
	candidates, err := ListByExtension(dir, ext)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Size() < maxBytes {
			out = append(out, path)
		}
	}
	return out, nil
}
