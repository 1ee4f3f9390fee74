// FileCache gives the import stage cheap repeated access to stylesheet
// sources using memory-mapped files.
//
// **Behavior:**
//   - Files are mapped read-only on first access and kept in an LRU
//   - Evicted entries are unmapped and their descriptors closed
//   - Falls back to os.ReadFile when mmap fails (e.g. special filesystems)
//   - Safe for concurrent use
package util

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMaxCachedFiles bounds the number of mapped files kept open.
const DefaultMaxCachedFiles = 256

// FileCache reads files through a bounded cache of memory-mapped regions.
type FileCache interface {
	// Read returns the contents of filePath, mapping it on first access.
	Read(filePath string) (string, error)

	// Size returns the number of currently cached files.
	Size() int

	// Stats returns cache counters.
	Stats() FileCacheStats

	// Close unmaps every cached file.
	Close() error
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles is the LRU capacity. Zero or negative uses DefaultMaxCachedFiles.
	MaxFiles int

	// Logger for warnings. If nil, uses slog.Default().
	Logger *slog.Logger
}

// MappedFile is a cached file.
type MappedFile struct {
	Path string

	// Data is the mapped region, or a heap copy for fallback entries.
	// Nil for empty files.
	Data mmap.MMap

	// File is nil for fallback entries.
	File *os.File

	Size     int64
	MappedAt time.Time
}

// FileCacheStats tracks cache counters.
type FileCacheStats struct {
	FilesLoaded  int64
	CacheHits    int64
	CacheMisses  int64
	MmapFailures int64
	Evictions    int64
}

type fileCacheImpl struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *MappedFile]
	logger *slog.Logger
	stats  FileCacheStats
}

// NewFileCache creates a FileCache. A nil config uses defaults.
func NewFileCache(config *FileCacheConfig) (FileCache, error) {
	if config == nil {
		config = &FileCacheConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxFiles := config.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxCachedFiles
	}

	fc := &fileCacheImpl{logger: logger}
	cache, err := lru.NewWithEvict(maxFiles, fc.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create file cache: %w", err)
	}
	fc.cache = cache
	return fc, nil
}

// Read returns the file contents as a string copy, safe to keep after eviction.
func (fc *fileCacheImpl) Read(filePath string) (string, error) {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if mf, ok := fc.cache.Get(filePath); ok {
		fc.stats.CacheHits++
		return string(mf.Data), nil
	}

	fc.stats.CacheMisses++
	mf, err := fc.loadFile(filePath)
	if err != nil {
		return "", err
	}
	fc.stats.FilesLoaded++
	fc.cache.Add(filePath, mf)

	return string(mf.Data), nil
}

// loadFile opens and maps a file. Must be called with mu held.
func (fc *fileCacheImpl) loadFile(filePath string) (*MappedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", filePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat %q: %w", filePath, err)
	}
	if stat.IsDir() {
		file.Close()
		return nil, fmt.Errorf("%q is a directory", filePath)
	}

	// Zero-length files cannot be mapped.
	if stat.Size() == 0 {
		file.Close()
		return &MappedFile{Path: filePath, MappedAt: time.Now()}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, using fallback",
			"file", filePath,
			"size", stat.Size(),
			"error", err)
		file.Close()

		raw, readErr := os.ReadFile(filePath)
		if readErr != nil {
			return nil, fmt.Errorf("mmap failed and fallback failed for %q: mmap error: %v, read error: %w",
				filePath, err, readErr)
		}
		fc.stats.MmapFailures++
		return &MappedFile{
			Path:     filePath,
			Data:     mmap.MMap(raw),
			Size:     int64(len(raw)),
			MappedAt: time.Now(),
		}, nil
	}

	return &MappedFile{
		Path:     filePath,
		Data:     data,
		File:     file,
		Size:     stat.Size(),
		MappedAt: time.Now(),
	}, nil
}

func (fc *fileCacheImpl) onEvict(path string, mf *MappedFile) {
	fc.stats.Evictions++
	if err := release(mf); err != nil {
		fc.logger.Warn("failed to release cached file", "path", path, "error", err)
	}
}

// release unmaps and closes a real mapping; fallback entries are left to the GC.
func release(mf *MappedFile) error {
	if mf == nil || mf.File == nil {
		return nil
	}
	var firstErr error
	if mf.Data != nil {
		if err := mf.Data.Unmap(); err != nil {
			firstErr = fmt.Errorf("unmap %q: %w", mf.Path, err)
		}
	}
	if err := mf.File.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close %q: %w", mf.Path, err)
	}
	return firstErr
}

func (fc *fileCacheImpl) Size() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.cache.Len()
}

func (fc *fileCacheImpl) Stats() FileCacheStats {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.stats
}

// Close purges the cache; eviction releases every mapping.
func (fc *fileCacheImpl) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	evictions := fc.stats.Evictions
	fc.cache.Purge()
	fc.stats.Evictions = evictions

	fc.logger.Debug("file cache closed",
		"files_loaded", fc.stats.FilesLoaded,
		"cache_hits", fc.stats.CacheHits,
		"cache_misses", fc.stats.CacheMisses,
		"mmap_failures", fc.stats.MmapFailures)
	return nil
}
