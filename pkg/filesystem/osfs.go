package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Rudd3r/sdprep/pkg/domain"
	"github.com/google/uuid"
)

var _ domain.RootFS = (*OSFS)(nil)

// OSFS implements domain.RootFS on top of os.Root, so that neither a ".."
// component nor an absolute symlink inside the image resolves to a host path.
type OSFS struct {
	baseDir string
	root    *os.Root
}

// NewOSFS opens baseDir, which must already exist, as the image root.
func NewOSFS(baseDir string) (*OSFS, error) {
	absPath, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolve base directory: %w", err)
	}
	root, err := os.OpenRoot(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open root %s: %w", absPath, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("open root %s: %w", absPath, err)
	}
	return &OSFS{baseDir: absPath, root: root}, nil
}

// normalizePath converts names to be relative to the image root
func (w *OSFS) normalizePath(name string) string {
	name = path.Clean("/" + filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}

func (w *OSFS) ReadFile(name string) ([]byte, error) {
	data, err := w.root.ReadFile(w.normalizePath(name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}

func (w *OSFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	name = w.normalizePath(name)
	if info, err := w.root.Lstat(name); err == nil && info.Mode().IsRegular() {
		perm = info.Mode().Perm()
	}
	return w.writeAtomic(name, data, perm)
}

// writeAtomic writes to a hidden sibling and renames it over name.
func (w *OSFS) writeAtomic(name string, data []byte, perm fs.FileMode) error {
	dir, base := path.Split(name)
	tmp := path.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()[:8]))

	f, err := w.root.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	cleanup := func() { _ = w.root.Remove(tmp) }

	if _, err = f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", name, err)
	}
	if err = f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", name, err)
	}
	// OpenFile is subject to the umask
	if err = w.root.Chmod(tmp, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", name, err)
	}
	if err = w.root.Rename(tmp, name); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (w *OSFS) CopyFile(src, dst string) error {
	src, dst = w.normalizePath(src), w.normalizePath(dst)
	info, err := w.root.Lstat(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}

	if info.Mode()&fs.ModeSymlink != 0 {
		target, err := w.root.Readlink(src)
		if err != nil {
			return fmt.Errorf("readlink %s: %w", src, err)
		}
		if err = w.root.Symlink(target, dst); err != nil {
			return fmt.Errorf("symlink %s -> %s: %w", dst, target, err)
		}
		return nil
	}

	data, err := w.root.ReadFile(src)
	if err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return w.writeAtomic(dst, data, info.Mode().Perm())
}

func (w *OSFS) Remove(name string) error {
	if err := w.root.Remove(w.normalizePath(name)); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func (w *OSFS) Lstat(name string) (fs.FileInfo, error) {
	return w.root.Lstat(w.normalizePath(name))
}

func (w *OSFS) HostPath(name string) string {
	return filepath.Join(w.baseDir, filepath.FromSlash(w.normalizePath(name)))
}

func (w *OSFS) Close() error {
	return w.root.Close()
}
