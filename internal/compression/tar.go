package compression

import (
	"archive/tar"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/security"
)

// decompressor opens the compressed stream wrapping a tar archive.
func decompressor(data []byte, format Format) (io.Reader, func() error, error) {
	noop := func() error { return nil }

	switch format {
	case FormatTarGz:
		gzr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gzr, gzr.Close, nil
	case FormatTarXz:
		xzr, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create xz reader: %w", err)
		}
		return xzr, noop, nil
	case FormatTarBz2:
		return bzip2.NewReader(bytes.NewReader(data)), noop, nil
	default:
		return nil, nil, fmt.Errorf("not a tar format: %s", format)
	}
}

// readTar reads every regular file from a compressed tar archive.
func readTar(data []byte, format Format, maxEntrySize int64) (Files, error) {
	r, closeFn, err := decompressor(data, format)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	tr := tar.NewReader(r)
	files := make(Files)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar archive: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		name, ok := cleanEntryName(header.Name)
		if !ok {
			return nil, fmt.Errorf("unsafe path in archive: %q", header.Name)
		}

		content, err := io.ReadAll(security.NewLimitedReader(tr, maxEntrySize))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from archive: %w", header.Name, err)
		}
		files[name] = content
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found in archive")
	}

	return files, nil
}
