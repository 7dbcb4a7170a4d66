package assets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type encoderFunc func(w io.Writer) (io.WriteCloser, error)

// precompressed lists the sibling artifacts written for each output, keyed by extension.
var precompressed = []struct {
	ext string
	enc encoderFunc
}{
	{
		ext: ".gz",
		enc: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriterLevel(w, gzip.BestCompression)
		},
	},
	{
		ext: ".zst",
		enc: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		},
	},
}

// precompress writes gzip and zstd copies of each output so static hosts can
// serve them without compressing on the fly. It returns the paths written,
// relative to workDir.
func precompress(workDir string, outputs []string) ([]string, error) {
	var written []string
	for _, output := range outputs {
		if isCompressed(output) {
			continue
		}
		for _, c := range precompressed {
			if err := compressFile(filepath.Join(workDir, output), c.ext, c.enc); err != nil {
				return written, fmt.Errorf("failed to precompress %s: %w", output, err)
			}
			written = append(written, output+c.ext)
		}
	}
	return written, nil
}

func compressFile(path, ext string, enc encoderFunc) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(path + ext)
	if err != nil {
		return err
	}
	defer dst.Close()

	w, err := enc(dst)
	if err != nil {
		return fmt.Errorf("failed to create encoder: %w", err)
	}

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return err
	}

	// flushes the frame footer, must happen before dst closes
	if err := w.Close(); err != nil {
		return err
	}

	return dst.Sync()
}

func isCompressed(path string) bool {
	for _, c := range precompressed {
		if strings.HasSuffix(path, c.ext) {
			return true
		}
	}
	return false
}
