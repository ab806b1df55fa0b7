// Package security guards archive handling against path traversal and
// decompression bombs.
package security

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	// MaxAssetBundleSize caps an asset bundle and each entry decompressed from it.
	MaxAssetBundleSize = 64 * 1024 * 1024

	// MaxInstallEntrySize caps a single file written during theme installation.
	MaxInstallEntrySize = 128 * 1024 * 1024

	// MaxSourcePixels caps the declared width × height of a source image
	// before it is decoded.
	MaxSourcePixels = 8192 * 8192
)

// ErrSizeLimit is returned by LimitedReader once the limit is crossed.
var ErrSizeLimit = errors.New("decompression size limit exceeded")

// ValidateFilePath rejects archive entry names that would land outside baseDir.
// Names may use either separator.
func ValidateFilePath(filePath, baseDir string) error {
	if filePath == "" {
		return fmt.Errorf("empty file path")
	}
	name := filepath.FromSlash(strings.ReplaceAll(filePath, `\`, "/"))
	if filepath.IsAbs(name) || strings.HasPrefix(filePath, "/") || filepath.VolumeName(name) != "" {
		return fmt.Errorf("absolute path %q not allowed", filePath)
	}
	for _, part := range strings.Split(filepath.ToSlash(name), "/") {
		if part == ".." {
			return fmt.Errorf("path %q contains directory traversal", filePath)
		}
	}

	base := filepath.Clean(baseDir)
	rel, err := filepath.Rel(base, filepath.Join(base, name))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q would escape %s", filePath, baseDir)
	}
	return nil
}

// LimitedReader reads from R until Remaining bytes are consumed. Unlike
// io.LimitedReader it fails with ErrSizeLimit instead of truncating.
type LimitedReader struct {
	R         io.Reader
	Remaining int64
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if l.Remaining <= 0 {
		// Exactly at the limit is fine as long as the source is drained.
		var probe [1]byte
		n, err := l.R.Read(probe[:])
		if n > 0 {
			return 0, ErrSizeLimit
		}
		if err == nil {
			err = io.ErrNoProgress
		}
		return 0, err
	}
	if int64(len(p)) > l.Remaining {
		p = p[:l.Remaining]
	}
	n, err := l.R.Read(p)
	l.Remaining -= int64(n)
	return n, err
}

// NewLimitedReader wraps r with a maxBytes budget.
func NewLimitedReader(r io.Reader, maxBytes int64) *LimitedReader {
	return &LimitedReader{R: r, Remaining: maxBytes}
}
