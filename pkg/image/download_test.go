package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileNameFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{url: "https://example.com/images/Armbian_sopine.img.xz", want: "Armbian_sopine.img.xz"},
		{url: "http://example.com/a/b.img.xz?token=1", want: "b.img.xz"},
		{url: "https://example.com/dl/sopine%20v2.img.xz", want: "sopine v2.img.xz"},
		{url: "https://example.com/", wantErr: true},
		{url: "https://example.com", wantErr: true},
		{url: "ftp://example.com/a.img", wantErr: true},
		{url: "::not a url", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := FileNameFromURL(tt.url)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrUsage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownload(t *testing.T) {
	payload := []byte("compressed image bytes")
	sum := sha256.Sum256(payload)
	digest := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/releases/sopine.img.xz":
			_, _ = w.Write(payload)
		case "/redirect/sopine.img.xz":
			http.Redirect(w, r, "/releases/sopine.img.xz", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	ctx := context.Background()

	t.Run("saves under last path segment", func(t *testing.T) {
		dir := t.TempDir()
		collector := NewCollector()
		d := &Downloader{Client: srv.Client(), Reporter: collector.Reporter()}

		got, err := d.Download(ctx, srv.URL+"/releases/sopine.img.xz", dir, digest)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "sopine.img.xz"), got)

		data, err := os.ReadFile(got)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
		assert.NoFileExists(t, got+".part")

		stats := collector.Stats()
		assert.Equal(t, 1, stats.Started)
		assert.Equal(t, 1, stats.Completed)
		assert.Equal(t, int64(len(payload)), stats.BytesRead)
	})

	t.Run("follows redirects", func(t *testing.T) {
		dir := t.TempDir()
		d := &Downloader{Client: srv.Client()}

		got, err := d.Download(ctx, srv.URL+"/redirect/sopine.img.xz", dir, "")
		require.NoError(t, err)
		assert.FileExists(t, got)
	})

	t.Run("creates output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "images", "sopine")
		d := &Downloader{Client: srv.Client()}

		_, err := d.Download(ctx, srv.URL+"/releases/sopine.img.xz", dir, "")
		require.NoError(t, err)
		assert.FileExists(t, filepath.Join(dir, "sopine.img.xz"))
	})

	t.Run("non 2xx fails", func(t *testing.T) {
		dir := t.TempDir()
		d := &Downloader{Client: srv.Client()}

		_, err := d.Download(ctx, srv.URL+"/missing.img.xz", dir, "")
		require.ErrorContains(t, err, "404")
		assert.NoFileExists(t, filepath.Join(dir, "missing.img.xz"))
	})

	t.Run("checksum mismatch leaves nothing behind", func(t *testing.T) {
		dir := t.TempDir()
		d := &Downloader{Client: srv.Client()}

		_, err := d.Download(ctx, srv.URL+"/releases/sopine.img.xz", dir, "00ff")
		require.ErrorContains(t, err, "checksum mismatch")
		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		d := &Downloader{Client: srv.Client()}

		_, err := d.Download(cctx, srv.URL+"/releases/sopine.img.xz", t.TempDir(), "")
		require.ErrorIs(t, err, context.Canceled)
	})
}
