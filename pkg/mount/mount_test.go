package mount

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/Rudd3r/sdprep/pkg/internal/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sopine.img")
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0644))
	return path
}

func realPath(t *testing.T, path string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(path)
	require.NoError(t, err)
	return resolved
}

func TestMount(t *testing.T) {
	ctx := context.Background()

	t.Run("creates mountpoint and runs mount", func(t *testing.T) {
		setupMockMountInfo(t, nil)
		img := testImage(t, 8192)
		mp := filepath.Join(t.TempDir(), "root")
		r := mocks.NewMockRunner()

		require.NoError(t, NewMounter(r, nil).Mount(ctx, img, mp, 4096))

		assert.DirExists(t, mp)
		assert.Equal(t, []string{
			fmt.Sprintf("mount -o loop,rw,sync,offset=4096 %s %s", img, mp),
		}, r.Commands())
	})

	t.Run("already mounted", func(t *testing.T) {
		img := testImage(t, 8192)
		mp := t.TempDir()
		setupMockMountInfo(t, []*MountInfoEntry{{Mountpoint: realPath(t, mp), Source: "/dev/loop3"}})
		r := mocks.NewMockRunner()

		err := NewMounter(r, nil).Mount(ctx, img, mp, 0)
		require.ErrorIs(t, err, domain.ErrAlreadyMounted)
		assert.Empty(t, r.Calls)
	})

	t.Run("missing image", func(t *testing.T) {
		setupMockMountInfo(t, nil)
		r := mocks.NewMockRunner()
		err := NewMounter(r, nil).Mount(ctx, filepath.Join(t.TempDir(), "absent.img"), t.TempDir(), 0)
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("offset past end", func(t *testing.T) {
		setupMockMountInfo(t, nil)
		r := mocks.NewMockRunner()
		err := NewMounter(r, nil).Mount(ctx, testImage(t, 512), t.TempDir(), 512)
		require.ErrorContains(t, err, "outside image")
		assert.Empty(t, r.Calls)
	})

	t.Run("mount failure surfaces", func(t *testing.T) {
		setupMockMountInfo(t, nil)
		r := mocks.NewMockRunnerFailOnCall(0, fmt.Errorf("mount: %w", domain.ErrExternalTool))
		err := NewMounter(r, nil).Mount(ctx, testImage(t, 8192), t.TempDir(), 0)
		require.ErrorIs(t, err, domain.ErrExternalTool)
	})
}

func TestUmount(t *testing.T) {
	ctx := context.Background()

	t.Run("unmounts", func(t *testing.T) {
		mp := t.TempDir()
		setupMockMountInfo(t, []*MountInfoEntry{{Mountpoint: realPath(t, mp), Source: "/dev/loop0"}})
		r := mocks.NewMockRunner()

		require.NoError(t, NewMounter(r, nil).Umount(ctx, mp))
		assert.Equal(t, []string{"umount " + mp}, r.Commands())
	})

	t.Run("not mounted", func(t *testing.T) {
		setupMockMountInfo(t, nil)
		r := mocks.NewMockRunner()

		err := NewMounter(r, nil).Umount(ctx, t.TempDir())
		require.ErrorIs(t, err, domain.ErrNotMounted)
		assert.Empty(t, r.Calls)
	})

	t.Run("umount failure surfaces", func(t *testing.T) {
		mp := t.TempDir()
		setupMockMountInfo(t, []*MountInfoEntry{{Mountpoint: realPath(t, mp), Source: "/dev/loop0"}})
		r := mocks.NewMockRunnerFailOnCall(0, fmt.Errorf("umount: %w: target is busy", domain.ErrExternalTool))

		err := NewMounter(r, nil).Umount(ctx, mp)
		require.ErrorIs(t, err, domain.ErrExternalTool)
	})
}
