package compression

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/security"
)

// readZip reads every regular file from a zip archive.
func readZip(data []byte, maxEntrySize int64) (Files, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zip reader: %w", err)
	}

	files := make(Files, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name, ok := cleanEntryName(f.Name)
		if !ok {
			return nil, fmt.Errorf("unsafe path in archive: %q", f.Name)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s in archive: %w", f.Name, err)
		}

		// Limit decompression size to prevent zip bombs
		content, readErr := io.ReadAll(security.NewLimitedReader(rc, maxEntrySize))
		closeErr := rc.Close()

		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s from archive: %w", f.Name, readErr)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("failed to close %s: %w", f.Name, closeErr)
		}

		files[name] = content
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no files found in archive")
	}

	return files, nil
}
