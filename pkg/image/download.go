package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

// Downloader fetches release images over HTTP.
type Downloader struct {
	Client   *http.Client
	Reporter *Reporter
	Log      *slog.Logger
}

func NewDownloader(log *slog.Logger) *Downloader {
	return &Downloader{
		Client:   http.DefaultClient,
		Reporter: ConsoleReporter(log),
		Log:      log,
	}
}

// FileNameFromURL returns the last path segment of rawURL.
func FileNameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid url %q: %v", domain.ErrUsage, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported url scheme %q", domain.ErrUsage, u.Scheme)
	}
	name := path.Base(u.Path)
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("%w: url %q has no file name", domain.ErrUsage, rawURL)
	}
	return name, nil
}

// Download saves rawURL into dir under its last path segment and returns the
// resulting path. The body is streamed to a .part file that is renamed once
// complete. When wantSHA256 is set the digest must match.
func (d *Downloader) Download(ctx context.Context, rawURL, dir, wantSHA256 string) (string, error) {
	name, err := FileNameFromURL(rawURL)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	if err = domain.EnsureDir(dir); err != nil {
		return "", err
	}
	dst := filepath.Join(dir, name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	d.log().Debug("GET", "url", rawURL)
	resp, err := d.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("GET %s: %w", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("GET %s: unexpected status %s", rawURL, resp.Status)
	}

	reporter := d.reporter()
	reporter.Start(name, resp.ContentLength)

	part := dst + ".part"
	f, err := os.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", part, err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
			_ = os.Remove(part)
		}
	}()

	hash := sha256.New()
	pr := NewProgressReader(resp.Body, reporter, name, resp.ContentLength)
	n, err := io.Copy(io.MultiWriter(f, hash), pr)
	if err != nil {
		reporter.Error(err, "download failed")
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	if resp.ContentLength > 0 && n != resp.ContentLength {
		return "", fmt.Errorf("download %s: short body, got %d of %d bytes", rawURL, n, resp.ContentLength)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", part, err)
	}

	sum := hex.EncodeToString(hash.Sum(nil))
	if wantSHA256 != "" && !strings.EqualFold(sum, wantSHA256) {
		return "", fmt.Errorf("checksum mismatch for %s: got %s, want %s", name, sum, wantSHA256)
	}
	if err = os.Rename(part, dst); err != nil {
		return "", fmt.Errorf("rename %s: %w", part, err)
	}
	ok = true

	reporter.Complete(name, n)
	d.log().Info("downloaded", "path", dst, "sha256", sum)
	return dst, nil
}

func (d *Downloader) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

func (d *Downloader) reporter() *Reporter {
	if d.Reporter == nil {
		return NoOpReporter()
	}
	return d.Reporter
}

func (d *Downloader) log() *slog.Logger {
	if d.Log == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Log
}
