package domain

import "io/fs"

// RootFS is the view of a mounted image that the patcher edits. Every name is
// relative to the image root; an absolute name is interpreted inside the image,
// never on the host.
type RootFS interface {
	// ReadFile returns the full content of name.
	ReadFile(name string) ([]byte, error)

	// WriteFile replaces name with data. An existing file keeps its permission
	// bits; perm is used only when name is created.
	WriteFile(name string, data []byte, perm fs.FileMode) error

	// CopyFile copies src to dst verbatim, including permission bits.
	// A symlink is copied as a symlink.
	CopyFile(src, dst string) error

	// Remove removes a file or symlink without following it.
	Remove(name string) error

	// Lstat returns file information without following a final symlink.
	Lstat(name string) (fs.FileInfo, error)

	// HostPath returns the location of name on the host, for external tools.
	HostPath(name string) string

	Close() error
}
