package vfs

import (
	"context"

	"github.com/l3aro/pyresolve/pkg/cache"
)

// Cached wraps a FileSystem with a bounded content cache for Open. ListDir
// and Walk always reach the underlying filesystem.
type Cached struct {
	FileSystem
	files *cache.FileCache
}

// NewCached wraps fs with a cache bounded by opts.
func NewCached(fs FileSystem, opts cache.Options) *Cached {
	return &Cached{FileSystem: fs, files: cache.New(opts)}
}

// Open serves path from the cache, reading through on a miss.
func (c *Cached) Open(ctx context.Context, path string) ([]byte, error) {
	if data, ok := c.files.Get(path); ok {
		return data, nil
	}
	data, err := c.FileSystem.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	c.files.Put(path, data)
	return data, nil
}

// Invalidate drops the cached contents of path.
func (c *Cached) Invalidate(path string) {
	c.files.Invalidate(path)
}

// InvalidatePrefix drops every cached file below dir.
func (c *Cached) InvalidatePrefix(dir string) int {
	return c.files.InvalidatePrefix(dir)
}

// Stats exposes the content cache counters.
func (c *Cached) Stats() cache.Stats {
	return c.files.Stats()
}
