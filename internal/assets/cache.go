package assets

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/singleflight"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
)

// Cache memoises decoded assets for the life of the process. Entries are
// never replaced or evicted; concurrent first requests for one key share a
// single load. Returned images are shared and must be treated as read-only.
type Cache struct {
	source Source
	logger hclog.Logger

	mu      sync.RWMutex
	entries map[Key]image.Image
	group   singleflight.Group
}

// NewCache returns an empty cache over source.
func NewCache(source Source, logger hclog.Logger) *Cache {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Cache{
		source:  source,
		logger:  logger.Named("assets"),
		entries: make(map[Key]image.Image),
	}
}

// Get returns the asset for key, loading it on first use. Failures are
// returned as *LoadError and are not cached.
func (c *Cache) Get(ctx context.Context, key Key) (image.Image, error) {
	c.mu.RLock()
	img, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	// The shared load outlives any one caller; each caller still stops
	// waiting when its own ctx ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(string(key), func() (any, error) {
		c.mu.RLock()
		img, ok := c.entries[key]
		c.mu.RUnlock()
		if ok {
			return img, nil
		}

		img, err := c.source.Load(loadCtx, key)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if existing, ok := c.entries[key]; ok {
			img = existing
		} else {
			c.entries[key] = img
		}
		c.mu.Unlock()
		c.logger.Debug("asset loaded", "asset", key, "size", img.Bounds().Size())
		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, &LoadError{Key: key, Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			c.logger.Warn("asset load failed", "asset", key, "error", res.Err)
			return nil, &LoadError{Key: key, Err: res.Err}
		}
		return res.Val.(image.Image), nil
	}
}

// Len reports the number of cached assets.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WriteDir loads each key and writes it to dir as "<key>.png". Keys the
// source does not hold are skipped and returned.
func WriteDir(ctx context.Context, c *Cache, keys []Key, dir string) (missing []Key, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	for _, key := range keys {
		img, err := c.Get(ctx, key)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, key)
			continue
		}
		if err != nil {
			return missing, err
		}
		data, err := themerimage.Encode(img, themerimage.FormatPNG, themerimage.EncodeOptions{})
		if err != nil {
			return missing, err
		}
		if err := os.WriteFile(filepath.Join(dir, key.Filename()), data, 0o644); err != nil {
			return missing, err
		}
	}
	return missing, nil
}
