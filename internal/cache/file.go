package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// FileCache stores keys in a small JSON object on disk. Values are kept as
// decimal strings.
type FileCache struct {
	path string
	mu   sync.Mutex
}

// NewFileCache returns a cache backed by path. The file is created on first
// write.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) ReadCount() (uint64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.load()
	if err != nil {
		return 0, false, err
	}
	raw, ok := values[CountKey]
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cached %s %q: %w", CountKey, raw, err)
	}
	return n, true, nil
}

func (c *FileCache) WriteCount(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	values, err := c.load()
	if err != nil {
		// A corrupt cache is replaced, never merged.
		values = map[string]string{}
	}
	values[CountKey] = strconv.FormatUint(n, 10)
	return c.save(values)
}

func (c *FileCache) Close() error { return nil }

func (c *FileCache) load() (map[string]string, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache: %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing cache %s: %w", c.path, err)
	}
	return values, nil
}

// save writes through a temp file so a crash never leaves a torn cache.
func (c *FileCache) save(values map[string]string) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}
