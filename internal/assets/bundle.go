package assets

import (
	"context"
	"fmt"
	"image"
	"os"
	"path"
	"sort"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/compression"
	themerimage "github.com/Cxndr/optcgsim-themer-sub000/internal/image"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/security"
)

// BundleSource serves assets from an archive (zip, tar.gz, tar.xz or tar.bz2)
// held in memory. Files are matched by base name, so the archive may nest
// them in any directory.
type BundleSource struct {
	name  string
	files map[string][]byte
}

// LoadBundle reads an asset bundle from disk.
func LoadBundle(filename string) (*BundleSource, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat asset bundle: %w", err)
	}
	if info.Size() > security.MaxAssetBundleSize {
		return nil, fmt.Errorf("asset bundle %s exceeds %d bytes", filename, security.MaxAssetBundleSize)
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset bundle: %w", err)
	}
	return NewBundleSource(filename, data)
}

// NewBundleSource indexes an in-memory archive.
func NewBundleSource(name string, data []byte) (*BundleSource, error) {
	files, err := compression.ReadArchive(data, name, security.MaxAssetBundleSize)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset bundle %s: %w", name, err)
	}

	b := &BundleSource{name: name, files: make(map[string][]byte, len(files))}
	for p, content := range files {
		b.files[path.Base(p)] = content
	}
	return b, nil
}

// Load implements Source.
func (b *BundleSource) Load(_ context.Context, key Key) (image.Image, error) {
	data, ok := b.files[key.Filename()]
	if !ok {
		return nil, ErrNotFound
	}
	return themerimage.Decode(b.name+":"+key.Filename(), data)
}

// Names lists the files in the bundle.
func (b *BundleSource) Names() []string {
	names := make([]string, 0, len(b.files))
	for n := range b.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
