package gallery

import (
	"fmt"
	"os"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

type cacheEntry struct {
	modTime time.Time
	size    int64
	md      map[string]string
}

// Cache remembers metadata until the picture file changes.
type Cache struct {
	r MetadataReader

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns a cache in front of r.
func NewCache(r MetadataReader) *Cache {
	return &Cache{r: r, entries: map[string]cacheEntry{}}
}

// Metadata returns the metadata of path, reading it only when path changed.
func (c *Cache) Metadata(path string) (map[string]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat: %w", err)
	}

	c.mu.Lock()
	e, ok := c.entries[path]
	c.mu.Unlock()

	if ok && e.modTime.Equal(st.ModTime()) && e.size == st.Size() {
		return e.md, nil
	}

	md, err := c.r.Metadata(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{modTime: st.ModTime(), size: st.Size(), md: md}
	c.mu.Unlock()
	return md, nil
}

// Forget drops whatever is cached for path.
func (c *Cache) Forget(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[path]; ok {
		klog.V(1).Infof("forgetting metadata of %s", path)
		delete(c.entries, path)
	}
}
