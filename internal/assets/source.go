// Package assets loads and memoises the fixed auxiliary rasters (masks,
// shadows and overlays) the category processors composite with.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"

	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
)

// Key is the logical name of an auxiliary asset, e.g. "playmatRoundedSmallMask".
type Key string

// Filename is the file the asset is stored under in directories and bundles.
func (k Key) Filename() string { return string(k) + ".png" }

// ErrNotFound is returned by a Source that does not hold the requested key.
var ErrNotFound = errors.New("asset not found")

// LoadError names the asset that could not be loaded.
type LoadError struct {
	Key Key
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load asset %s: %v", e.Key, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source produces decoded assets by key.
type Source interface {
	Load(ctx context.Context, key Key) (image.Image, error)
}

// FSSource reads "<key>.png" files from a file system.
type FSSource struct {
	fsys fs.FS
	dir  string
}

// NewFSSource reads assets from dir inside fsys ("." for the root).
func NewFSSource(fsys fs.FS, dir string) *FSSource {
	if dir == "" {
		dir = "."
	}
	return &FSSource{fsys: fsys, dir: dir}
}

// NewDirSource reads assets from a directory on disk.
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir), ".")
}

// Load implements Source.
func (s *FSSource) Load(_ context.Context, key Key) (image.Image, error) {
	name := path.Join(s.dir, key.Filename())
	data, err := fs.ReadFile(s.fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return themerimage.Decode(name, data)
}

// ChainSource tries each source in order; the first that has the key wins.
type ChainSource []Source

// Load implements Source.
func (c ChainSource) Load(ctx context.Context, key Key) (image.Image, error) {
	for _, s := range c {
		img, err := s.Load(ctx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return img, err
	}
	return nil, ErrNotFound
}
