package mocks

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/Rudd3r/sdprep/pkg/domain"
)

var _ domain.RootFS = (*MockFS)(nil)

// MockFS is an in-memory domain.RootFS for testing.
// It tracks writes and can be told to fail specific operations.
type MockFS struct {
	files    map[string]*mockFile
	symlinks map[string]string
	closed   bool

	// Writes lists every name passed to WriteFile or created by CopyFile, in order.
	Writes []string
	// FailOn maps "op:name" (e.g. "write:etc/hosts") to the error that op returns.
	FailOn map[string]error
}

type mockFile struct {
	content []byte
	mode    fs.FileMode
	modTime time.Time
}

// NewMockFS creates a new in-memory image root
func NewMockFS() *MockFS {
	if !testing.Testing() {
		panic(fmt.Errorf("NewMockFS cannot be used outside test"))
	}
	return &MockFS{
		files:    make(map[string]*mockFile),
		symlinks: make(map[string]string),
		FailOn:   make(map[string]error),
	}
}

// normalize cleans the path for consistent lookups
func (m *MockFS) normalize(name string) string {
	return strings.TrimPrefix(path.Clean("/"+name), "/")
}

func (m *MockFS) fail(op, name string) error {
	if err, ok := m.FailOn[op+":"+name]; ok {
		return err
	}
	return nil
}

// AddFile seeds a regular file.
func (m *MockFS) AddFile(name, content string, mode fs.FileMode) {
	name = m.normalize(name)
	delete(m.symlinks, name)
	m.files[name] = &mockFile{content: []byte(content), mode: mode, modTime: time.Now()}
}

// AddSymlink seeds a symlink; the target is never resolved.
func (m *MockFS) AddSymlink(name, target string) {
	name = m.normalize(name)
	delete(m.files, name)
	m.symlinks[name] = target
}

func (m *MockFS) ReadFile(name string) ([]byte, error) {
	name = m.normalize(name)
	if err := m.fail("read", name); err != nil {
		return nil, err
	}
	if _, ok := m.symlinks[name]; ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: fmt.Errorf("symlink not followed")}
	}
	f, ok := m.files[name]
	if !ok {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrNotExist}
	}
	return append([]byte(nil), f.content...), nil
}

func (m *MockFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	name = m.normalize(name)
	if err := m.fail("write", name); err != nil {
		return err
	}
	if f, ok := m.files[name]; ok {
		perm = f.mode
	}
	delete(m.symlinks, name)
	m.files[name] = &mockFile{content: append([]byte(nil), data...), mode: perm, modTime: time.Now()}
	m.Writes = append(m.Writes, name)
	return nil
}

func (m *MockFS) CopyFile(src, dst string) error {
	src, dst = m.normalize(src), m.normalize(dst)
	if err := m.fail("copy", src); err != nil {
		return err
	}
	if target, ok := m.symlinks[src]; ok {
		m.symlinks[dst] = target
		m.Writes = append(m.Writes, dst)
		return nil
	}
	f, ok := m.files[src]
	if !ok {
		return &os.PathError{Op: "copy", Path: src, Err: os.ErrNotExist}
	}
	m.files[dst] = &mockFile{content: append([]byte(nil), f.content...), mode: f.mode, modTime: time.Now()}
	m.Writes = append(m.Writes, dst)
	return nil
}

func (m *MockFS) Remove(name string) error {
	name = m.normalize(name)
	if err := m.fail("remove", name); err != nil {
		return err
	}
	if _, ok := m.symlinks[name]; ok {
		delete(m.symlinks, name)
		return nil
	}
	if _, ok := m.files[name]; ok {
		delete(m.files, name)
		return nil
	}
	return &os.PathError{Op: "remove", Path: name, Err: os.ErrNotExist}
}

func (m *MockFS) Lstat(name string) (fs.FileInfo, error) {
	name = m.normalize(name)
	if target, ok := m.symlinks[name]; ok {
		return &mockInfo{name: path.Base(name), size: int64(len(target)), mode: fs.ModeSymlink | 0777}, nil
	}
	if f, ok := m.files[name]; ok {
		return &mockInfo{name: path.Base(name), size: int64(len(f.content)), mode: f.mode, modTime: f.modTime}, nil
	}
	return nil, &os.PathError{Op: "lstat", Path: name, Err: os.ErrNotExist}
}

func (m *MockFS) HostPath(name string) string {
	return "/mock/" + m.normalize(name)
}

func (m *MockFS) Close() error {
	if m.closed {
		return fmt.Errorf("already closed")
	}
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockFS) Closed() bool {
	return m.closed
}

// GetFileContent returns the content of a regular file.
func (m *MockFS) GetFileContent(name string) (string, error) {
	f, ok := m.files[m.normalize(name)]
	if !ok {
		return "", &os.PathError{Op: "read", Path: name, Err: os.ErrNotExist}
	}
	return string(f.content), nil
}

// GetSymlinkTarget returns the target of a symlink.
func (m *MockFS) GetSymlinkTarget(name string) (string, error) {
	target, ok := m.symlinks[m.normalize(name)]
	if !ok {
		return "", &os.PathError{Op: "readlink", Path: name, Err: os.ErrNotExist}
	}
	return target, nil
}

// FileExists reports whether name is a file or symlink.
func (m *MockFS) FileExists(name string) bool {
	_, err := m.Lstat(name)
	return err == nil
}

// Mode returns the permission bits of a regular file.
func (m *MockFS) Mode(name string) fs.FileMode {
	if f, ok := m.files[m.normalize(name)]; ok {
		return f.mode
	}
	return 0
}

type mockInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
}

func (i *mockInfo) Name() string       { return i.name }
func (i *mockInfo) Size() int64        { return i.size }
func (i *mockInfo) Mode() fs.FileMode  { return i.mode }
func (i *mockInfo) ModTime() time.Time { return i.modTime }
func (i *mockInfo) IsDir() bool        { return i.mode.IsDir() }
func (i *mockInfo) Sys() any           { return nil }
