// Package image provides utilities for loading, decoding and encoding theme art.
package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format
	_ "image/jpeg" // Register JPEG format
	_ "image/png"  // Register PNG format
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format

	"github.com/Cxndr/optcgsim-themer-sub000/internal/security"
	httputil "github.com/Cxndr/optcgsim-themer-sub000/internal/util/http"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/util/imagecache"
)

// MaxSourceBytes caps the size of a single source image.
const MaxSourceBytes = 64 * 1024 * 1024

// Loader resolves a source reference to a decoded image.
type Loader interface {
	// Load decodes the image behind ref (path, http(s) URL or data URI).
	Load(ctx context.Context, ref string) (image.Image, error)
}

// FileLoader loads images from the local filesystem.
type FileLoader struct{}

// NewFileLoader creates a new FileLoader instance.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load loads an image from a file path.
// Supported formats: JPEG, PNG, GIF, WebP.
func (l *FileLoader) Load(_ context.Context, path string) (image.Image, error) {
	if path == "" {
		return nil, &DecodeError{Source: path, Err: fmt.Errorf("image path cannot be empty")}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &DecodeError{Source: path, Err: fmt.Errorf("image file not found")}
		}
		return nil, &DecodeError{Source: path, Err: fmt.Errorf("failed to stat image file: %w", err)}
	}
	if info.IsDir() {
		return nil, &DecodeError{Source: path, Err: fmt.Errorf("path is a directory, not a file")}
	}

	data, err := os.ReadFile(path) // #nosec G304 - User-specified image path, intended to be read
	if err != nil {
		return nil, &DecodeError{Source: path, Err: fmt.Errorf("failed to read image file: %w", err)}
	}

	return Decode(path, data)
}

// SmartLoader loads images from local files, HTTP(S) URLs and data URIs.
type SmartLoader struct {
	fileLoader *FileLoader
	baseDir    string
	cacheDir   string
	fetch      httputil.FetchOptions
}

// LoaderOption configures a SmartLoader.
type LoaderOption func(*SmartLoader)

// WithBaseDir resolves relative file paths against dir.
func WithBaseDir(dir string) LoaderOption {
	return func(l *SmartLoader) {
		l.baseDir = dir
	}
}

// WithDiskCache caches downloaded remote images in dir.
func WithDiskCache(dir string) LoaderOption {
	return func(l *SmartLoader) {
		l.cacheDir = dir
	}
}

// WithFetchOptions overrides the HTTP fetch options used for remote images.
func WithFetchOptions(opts httputil.FetchOptions) LoaderOption {
	return func(l *SmartLoader) {
		l.fetch = opts
	}
}

// NewSmartLoader creates a new SmartLoader instance.
func NewSmartLoader(opts ...LoaderOption) *SmartLoader {
	l := &SmartLoader{
		fileLoader: NewFileLoader(),
		fetch:      httputil.FetchOptions{MaxBytes: MaxSourceBytes},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load loads an image from a local file path, an HTTP(S) URL or a data URI.
func (l *SmartLoader) Load(ctx context.Context, ref string) (image.Image, error) {
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case IsRemote(ref):
		return l.loadFromURL(ctx, ref)
	}

	path := ref
	if l.baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(l.baseDir, path)
	}
	return l.fileLoader.Load(ctx, path)
}

// loadFromURL fetches and decodes an image from an HTTP(S) URL.
func (l *SmartLoader) loadFromURL(ctx context.Context, url string) (image.Image, error) {
	var (
		data []byte
		err  error
	)
	if l.cacheDir != "" {
		data, err = imagecache.Fetch(ctx, url, imagecache.CacheOptions{CacheDir: l.cacheDir, Fetch: l.fetch})
	} else {
		data, err = httputil.Fetch(ctx, url, l.fetch)
	}
	if err != nil {
		return nil, &DecodeError{Source: url, Err: fmt.Errorf("failed to fetch image from URL: %w", err)}
	}

	return Decode(url, data)
}

// Decode decodes raw image bytes, tagging failures with source. The header
// is checked against security.MaxSourcePixels before any pixel buffer is
// allocated.
func Decode(source string, data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("image has no pixels")}
	}
	if int64(cfg.Width)*int64(cfg.Height) > security.MaxSourcePixels {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("%w: %dx%d exceeds %d pixels",
			ErrTooManyPixels, cfg.Width, cfg.Height, security.MaxSourcePixels)}
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Source: source, Err: err}
	}
	if img.Bounds().Empty() {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("image has no pixels")}
	}
	return img, nil
}

// decodeDataURI decodes a base64 "data:image/...;base64," reference.
func decodeDataURI(ref string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, &DecodeError{Source: ref, Err: fmt.Errorf("malformed data URI")}
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, &DecodeError{Source: ref, Err: fmt.Errorf("invalid base64 payload: %w", err)}
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, &DecodeError{Source: ref, Err: fmt.Errorf("invalid data URI payload: %w", err)}
		}
		data = []byte(unescaped)
	}

	return Decode(ref, data)
}

// DataURI encodes raw image bytes as a base64 data URI.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// IsRemote reports whether ref is an HTTP(S) URL.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// SupportedImageExtensions returns a list of supported image file extensions.
func SupportedImageExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}
}

// isImageFile checks if a file has a supported image extension.
func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return slices.Contains(SupportedImageExtensions(), ext)
}

// ScanDirectoryForImages scans a directory and returns all valid image files, sorted by name.
// It does not recurse into subdirectories, but follows symlinks.
func ScanDirectoryForImages(dirPath string) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var imageFiles []string
	for _, entry := range entries {
		fullPath := filepath.Join(dirPath, entry.Name())

		// For symlinks, stat the target to determine if it's a file.
		info, err := os.Stat(fullPath)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}

		if isImageFile(entry.Name()) {
			imageFiles = append(imageFiles, fullPath)
		}
	}

	if len(imageFiles) == 0 {
		return nil, fmt.Errorf("no supported image files found in directory: %s", dirPath)
	}

	slices.Sort(imageFiles)
	return imageFiles, nil
}
