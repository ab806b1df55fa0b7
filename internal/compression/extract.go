// Package compression reads asset bundle archives into memory.
package compression

import (
	"bytes"
	"fmt"
	"path"
	"strings"
)

// Format identifies a supported bundle archive format.
type Format string

const (
	FormatZip    Format = "zip"
	FormatTarGz  Format = "tar.gz"
	FormatTarXz  Format = "tar.xz"
	FormatTarBz2 Format = "tar.bz2"
)

var (
	magicZip   = []byte("PK\x03\x04")
	magicGzip  = []byte{0x1f, 0x8b}
	magicXz    = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	magicBzip2 = []byte("BZh")
)

// Files maps cleaned, slash separated archive paths to file contents.
type Files map[string][]byte

// ReadArchive detects the archive format and returns every regular file it contains.
// Detection uses the leading magic bytes first and falls back to the filename extension.
// Each entry is read through a size limited reader to guard against decompression bombs.
func ReadArchive(data []byte, filename string, maxEntrySize int64) (Files, error) {
	format, err := DetectFormat(data, filename)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatZip:
		return readZip(data, maxEntrySize)
	case FormatTarGz, FormatTarXz, FormatTarBz2:
		return readTar(data, format, maxEntrySize)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s", format)
	}
}

// DetectFormat determines the archive format of data.
func DetectFormat(data []byte, filename string) (Format, error) {
	switch {
	case bytes.HasPrefix(data, magicZip):
		return FormatZip, nil
	case bytes.HasPrefix(data, magicGzip):
		return FormatTarGz, nil
	case bytes.HasPrefix(data, magicXz):
		return FormatTarXz, nil
	case bytes.HasPrefix(data, magicBzip2):
		return FormatTarBz2, nil
	}

	// Fall back to filename extension detection
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz, nil
	case strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tbz"), strings.HasSuffix(name, ".tbz2"):
		return FormatTarBz2, nil
	}

	return "", fmt.Errorf("unrecognised archive format for %q", filename)
}

// GetArchiveBaseName extracts the base name from an archive filename.
// For example: "optcg-assets_1.2.0.tar.xz" -> "optcg-assets".
func GetArchiveBaseName(filename string) string {
	base := path.Base(filename)
	for _, ext := range []string{".tar.gz", ".tgz", ".tar.xz", ".txz", ".tar.bz2", ".tbz", ".tbz2", ".zip"} {
		if before, ok := strings.CutSuffix(base, ext); ok {
			base = before
			break
		}
	}

	if idx := strings.Index(base, "_"); idx > 0 {
		return base[:idx]
	}

	return base
}

// cleanEntryName normalises an archive entry name, rejecting unsafe paths.
func cleanEntryName(name string) (string, bool) {
	name = strings.ReplaceAll(name, "\\", "/")
	if name == "" || strings.HasPrefix(name, "/") {
		return "", false
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", false
	}
	return cleaned, true
}
