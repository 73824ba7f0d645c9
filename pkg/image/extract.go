package image

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var decompressors = map[string]func(r io.Reader) (io.ReadCloser, error){
	".xz": func(r io.Reader) (io.ReadCloser, error) {
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	},
	".gz": func(r io.Reader) (io.ReadCloser, error) {
		return gzip.NewReader(r)
	},
	".zst": func(r io.Reader) (io.ReadCloser, error) {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	},
}

// DecompressedName strips the compression suffix from file.
func DecompressedName(file string) (string, error) {
	ext := strings.ToLower(filepath.Ext(file))
	if _, ok := decompressors[ext]; !ok {
		return "", fmt.Errorf("%w: unsupported archive %s (want .xz, .gz or .zst)", domain.ErrUsage, file)
	}
	return file[:len(file)-len(ext)], nil
}

// Extract decompresses file next to itself and keeps the original.
// An existing output is only replaced when force is set.
func Extract(ctx context.Context, file string, force bool, reporter *Reporter) (string, error) {
	out, err := DecompressedName(file)
	if err != nil {
		return "", err
	}
	if reporter == nil {
		reporter = NoOpReporter()
	}

	src, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s: %w", file, domain.ErrNotFound)
		}
		return "", fmt.Errorf("open %s: %w", file, err)
	}
	defer func() { _ = src.Close() }()

	if _, err = os.Stat(out); err == nil && !force {
		return "", fmt.Errorf("%s: %w", out, fs.ErrExist)
	}

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", file, err)
	}
	name := filepath.Base(file)
	reporter.Start(name, info.Size())

	pr := NewProgressReader(ContextReader(ctx, src), reporter, name, info.Size())
	dec, err := decompressors[strings.ToLower(filepath.Ext(file))](pr)
	if err != nil {
		return "", fmt.Errorf("open archive %s: %w", file, err)
	}
	defer func() { _ = dec.Close() }()

	part := out + ".part"
	dst, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", part, err)
	}
	n, err := io.Copy(dst, dec)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(part)
		reporter.Error(err, "extract failed")
		return "", fmt.Errorf("extract %s: %w", file, err)
	}
	if err = os.Rename(part, out); err != nil {
		_ = os.Remove(part)
		return "", fmt.Errorf("rename %s: %w", part, err)
	}

	reporter.Complete(filepath.Base(out), n)
	return out, nil
}

// ContextReader returns a reader that fails with ctx.Err() once ctx is done.
func ContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
