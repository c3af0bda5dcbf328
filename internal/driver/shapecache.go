package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"stc/internal/project"
)

// Current schema version - increment when the cache file format changes
const shapeCacheSchema uint16 = 1

// ShapeEntry is what the cache remembers about one module between runs.
type ShapeEntry struct {
	ContentHash project.Digest // hash of the AST document bytes
	ModuleHash  project.Digest // content hash folded with dependency module hashes
	Shape       project.Digest // public-shape hash of the checked module
}

type shapeFile struct {
	Schema  uint16
	Entries map[string]ShapeEntry
}

// ShapeCache persists public-shape hashes per module path in one msgpack
// file. Safe for concurrent use.
type ShapeCache struct {
	mu      sync.RWMutex
	path    string
	entries map[string]ShapeEntry
	dirty   bool
}

// DefaultCachePath returns the cache file for the project rooted at
// projectDir under $XDG_CACHE_HOME/stc (or ~/.cache/stc).
func DefaultCachePath(projectDir string) (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(abs))
	// Для удобства очистки — подкаталог "shapes".
	return filepath.Join(base, "stc", "shapes", hex.EncodeToString(sum[:8])+".mp"), nil
}

// OpenShapeCache loads path. A missing file, or one written with another
// schema, yields an empty cache.
func OpenShapeCache(path string) (*ShapeCache, error) {
	c := &ShapeCache{path: path, entries: make(map[string]ShapeEntry)}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	defer f.Close()

	var payload shapeFile
	if err := msgpack.NewDecoder(f).Decode(&payload); err != nil {
		return nil, fmt.Errorf("shape cache %s: %w", path, err)
	}
	if payload.Schema != shapeCacheSchema {
		c.dirty = true
		return c, nil
	}
	if payload.Entries != nil {
		c.entries = payload.Entries
	}
	return c, nil
}

// Path returns the cache file location.
func (c *ShapeCache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

func (c *ShapeCache) Get(modulePath string) (ShapeEntry, bool) {
	if c == nil {
		return ShapeEntry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[modulePath]
	return e, ok
}

func (c *ShapeCache) Put(modulePath string, e ShapeEntry) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.entries[modulePath]; ok && prev == e {
		return
	}
	c.entries[modulePath] = e
	c.dirty = true
}

// Retain drops entries for modules not in keep.
func (c *ShapeCache) Retain(keep []string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for p := range c.entries {
		if !slices.Contains(keep, p) {
			delete(c.entries, p)
			c.dirty = true
		}
	}
}

// Len reports the number of cached modules.
func (c *ShapeCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Save writes the cache if it changed since it was opened.
func (c *ShapeCache) Save() (err error) {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(c.path), "tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(f.Name())
		}
	}()

	enc := msgpack.NewEncoder(f)
	enc.SetSortMapKeys(true)
	if err = enc.Encode(&shapeFile{Schema: shapeCacheSchema, Entries: c.entries}); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	if err = os.Rename(f.Name(), c.path); err != nil {
		return err
	}
	c.dirty = false
	return nil
}
