// Package scaffold holds the starter project written by `stylepipe init`.
package scaffold

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

//go:embed files
var files embed.FS

// Files lists the starter files by name.
func Files() []string {
	entries, _ := fs.ReadDir(files, "files")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// Content returns one starter file.
func Content(name string) ([]byte, error) {
	return files.ReadFile("files/" + name)
}

// Result reports what Write did with each file.
type Result struct {
	Written []string
	Skipped []string
}

// Write copies the starter files into dir. Existing files are kept unless
// force is set.
func Write(dir string, force bool) (Result, error) {
	var res Result
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create %s: %w", dir, err)
	}
	for _, name := range Files() {
		dst := filepath.Join(dir, name)
		if _, err := os.Stat(dst); err == nil && !force {
			res.Skipped = append(res.Skipped, dst)
			continue
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("stat %s: %w", dst, err)
		}
		data, err := Content(name)
		if err != nil {
			return res, err
		}
		if err := os.WriteFile(dst, data, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", dst, err)
		}
		res.Written = append(res.Written, dst)
	}
	return res, nil
}
