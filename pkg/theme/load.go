package theme

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnana997/stylepipe/pkg/parser"
)

// DefaultCandidates are the file names Discover looks for, in order.
var DefaultCandidates = []string{
	"tailwind.config.ts",
	"tailwind.config.js",
	"tailwind.config.mjs",
	"tailwind.config.cjs",
	"theme.yaml",
	"theme.yml",
}

// ErrNotFound is returned by Discover when no candidate exists.
var ErrNotFound = errors.New("no theme config found")

// LoadOptions configures Load.
type LoadOptions struct {
	// Parsers is reused when set; otherwise Load creates and closes its own.
	Parsers *parser.ParserManager
	Logger  *slog.Logger
}

// Load reads a theme file, dispatching on its extension.
func Load(path string, opts LoadOptions) (*Config, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("theme config: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("theme config %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("theme config: %w", err)
	}

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); {
	case parser.IsScript(path):
		pm := opts.Parsers
		if pm == nil {
			pm = parser.NewParserManager(logger)
			defer pm.Close()
		}
		cfg, err = LoadScript(path, data, pm, logger)
	case ext == ".yaml" || ext == ".yml" || ext == ".json":
		cfg, err = ParseYAML(data, logger.With("file", path))
	default:
		return nil, fmt.Errorf("theme config %s: unsupported file type %q", path, ext)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("theme loaded", "file", path, "tokens", cfg.Len(), "categories", cfg.Categories())
	return cfg, nil
}

// Discover returns the first DefaultCandidates entry present in dir.
func Discover(dir string) (string, error) {
	for _, name := range DefaultCandidates {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w in %s (looked for %s)", ErrNotFound, dir, strings.Join(DefaultCandidates, ", "))
}
