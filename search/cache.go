// Package search maintains the executable search cache: an in-memory index
// from command basename to resolved absolute path, built from PATH.
package search

import (
	"os"
	"path/filepath"
	"strings"

	"ish/internal/ishlog"
)

// Cache maps a command basename to the absolute path of the first PATH
// directory entry with that name. It is populated at process start and
// rebuilt on demand by Rehash; lookups never touch the filesystem.
type Cache struct {
	byName map[string]string
	log    *ishlog.Logger
}

// New returns a Cache populated from the current PATH.
func New(log *ishlog.Logger) *Cache {
	c := &Cache{byName: make(map[string]string), log: log}
	c.Rehash()
	return c
}

// Lookup returns the absolute path cached for name, if any. name and the
// returned path are both NUL-free byte strings by construction: Rehash
// skips any PATH entry whose basename or path contains a NUL.
func (c *Cache) Lookup(name []byte) ([]byte, bool) {
	path, ok := c.byName[string(name)]
	if !ok {
		return nil, false
	}
	return []byte(path), true
}

// Rehash clears the cache and rebuilds it from the PATH environment
// variable's value (not its key — an earlier revision of the source this
// shell descends from split the literal string "PATH" instead, a bug; this
// implementation splits os.Getenv("PATH")). PATH directories are visited
// left to right and the first directory to contain a given basename wins;
// later directories with the same basename are ignored. Directories that
// cannot be read, and entries whose name or resolved path contains a NUL
// byte, are skipped without aborting the rest of the rehash.
func (c *Cache) Rehash() {
	clear(c.byName)

	pathValue := os.Getenv("PATH")
	for _, dir := range strings.Split(pathValue, string(filepath.ListSeparator)) {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			c.log.Warnf("rehash: skipping unreadable PATH directory %q: %v", dir, err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if strings.ContainsRune(name, 0) {
				continue
			}
			if _, exists := c.byName[name]; exists {
				continue
			}
			full := filepath.Join(dir, name)
			if strings.ContainsRune(full, 0) {
				continue
			}
			c.byName[name] = full
		}
	}
}
