package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// MissingDirs returns the directories os.MkdirAll(dir) would create,
// outermost first, without creating them. It fails when an existing ancestor
// is not a directory.
func MissingDirs(dir string) ([]string, error) {
	var missing []string
	d := filepath.Clean(dir)
	for {
		info, err := os.Stat(d)
		if err == nil {
			if !info.IsDir() {
				return nil, fmt.Errorf("%s is not a directory", d)
			}
			break
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		missing = append(missing, d)
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	slices.Reverse(missing)
	return missing, nil
}

// RemoveEmptyDirs removes dirs innermost first, as returned by MissingDirs.
// It stops at the first directory that is not empty.
func RemoveEmptyDirs(dirs []string) {
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Remove(dirs[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return
		}
	}
}
