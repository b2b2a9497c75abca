package importer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FormatOf maps a file extension to its format.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".jsonl", ".ndjson":
		return FormatJSONL, true
	case ".csv":
		return FormatCSV, true
	default:
		return "", false
	}
}

// Discover expands paths into importable files. Directories are walked
// recursively and files with unknown extensions inside them are skipped; a
// file named explicitly must have a known extension.
func Discover(paths []string) ([]DiscoveredFile, error) {
	var files []DiscoveredFile

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			format, ok := FormatOf(p)
			if !ok {
				return nil, fmt.Errorf("%s: unsupported file type (expected .json, .jsonl or .csv)", p)
			}
			files = append(files, DiscoveredFile{Path: p, Format: format})
			continue
		}

		var found []DiscoveredFile
		err = filepath.WalkDir(p, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil //nolint:nilerr // intentionally skip unreadable entries
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			if format, ok := FormatOf(path); ok {
				found = append(found, DiscoveredFile{Path: path, Format: format})
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
		files = append(files, found...)
	}

	return files, nil
}
