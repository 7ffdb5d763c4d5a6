package logscan

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const Extension = ".jsonl"

func DiscoverAll(root string) []string {
	return discover(root, func(fs.FileInfo) bool { return true })
}

func DiscoverModifiedSince(root string, since time.Time) []string {
	return discover(root, func(info fs.FileInfo) bool { return info.ModTime().After(since) })
}

func discover(root string, keep func(fs.FileInfo) bool) []string {
	var out []string
	if root == "" {
		return out
	}
	if _, err := os.Stat(root); err != nil {
		slog.Debug("log root unavailable", "root", root, "error", err)
		return out
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || filepath.Ext(path) != Extension {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}
		if keep(info) {
			out = append(out, path)
		}
		return nil
	})
	sort.Strings(out)
	return out
}

// Plan decides where to resume reading a file. A file whose mtime has not
// advanced past the stored one is skipped once any bytes were consumed; a file
// that shrank below the stored offset is read again from the start.
func Plan(size int64, mtime time.Time, storedOffset int64, storedMtime time.Time) (start int64, skip bool) {
	if storedOffset > 0 && !mtime.After(storedMtime) {
		return storedOffset, true
	}
	if size < storedOffset {
		return 0, false
	}
	return storedOffset, false
}
