// Package posix adapts fatvol's idiomatic (value, error) API to the literal
// C-flavored signatures in spec.md §6: every operation returns 0 (or a
// non-negative value where specified) on success and -1 on any error, with
// no distinguished error codes exposed. Use the fatvol package directly
// unless you specifically need this shape.
package posix

import (
	"io"

	"github.com/fatvol/fatvol/filesystem/fatvol"
)

// FS is a mounted volume, addressed the way spec.md §6 addresses one: by
// value-returning methods instead of fatvol.Session's errors.
type FS struct {
	session *fatvol.Session
}

// MakeFS formats a fresh volume at name.
func MakeFS(name string) int {
	if err := fatvol.MakeFS(name); err != nil {
		return -1
	}
	return 0
}

// MountFS mounts the volume at name.
func MountFS(name string) (*FS, int) {
	s, err := fatvol.Mount(name)
	if err != nil {
		return nil, -1
	}
	return &FS{session: s}, 0
}

// UmountFS flushes and closes the volume.
func (f *FS) UmountFS() int {
	if err := f.session.Unmount(); err != nil {
		return -1
	}
	return 0
}

// Create creates a new, empty file named name.
func (f *FS) Create(name string) int {
	if err := f.session.Create(name); err != nil {
		return -1
	}
	return 0
}

// Delete removes the file named name.
func (f *FS) Delete(name string) int {
	if err := f.session.Delete(name); err != nil {
		return -1
	}
	return 0
}

// Open opens the file named name and returns a descriptor in [0, MaxFDs).
func (f *FS) Open(name string) int {
	fd, err := f.session.Open(name)
	if err != nil {
		return -1
	}
	return fd
}

// Close closes fd.
func (f *FS) Close(fd int) int {
	if err := f.session.Close(fd); err != nil {
		return -1
	}
	return 0
}

// Read reads up to nbyte bytes from fd into buf, returning the number of
// bytes actually transferred (which may be less than nbyte at EOF).
func (f *FS) Read(fd int, buf []byte, nbyte int) int {
	if nbyte > len(buf) {
		nbyte = len(buf)
	}
	if nbyte <= 0 {
		return 0
	}
	n, err := f.session.Read(fd, buf[:nbyte])
	if err != nil && err != io.EOF {
		return -1
	}
	return n
}

// Write writes nbyte bytes from buf to fd, returning the number of bytes
// actually written.
func (f *FS) Write(fd int, buf []byte, nbyte int) int {
	if nbyte > len(buf) {
		nbyte = len(buf)
	}
	if nbyte <= 0 {
		return 0
	}
	n, err := f.session.Write(fd, buf[:nbyte])
	if err != nil {
		return -1
	}
	return n
}

// GetFileSize returns the size of the file referenced by fd.
func (f *FS) GetFileSize(fd int) int {
	n, err := f.session.GetFileSize(fd)
	if err != nil {
		return -1
	}
	return n
}

// Lseek sets fd's offset.
func (f *FS) Lseek(fd int, offset int64) int {
	if _, err := f.session.Lseek(fd, offset); err != nil {
		return -1
	}
	return 0
}

// Truncate shrinks fd's file to length.
func (f *FS) Truncate(fd int, length int64) int {
	if err := f.session.Truncate(fd, length); err != nil {
		return -1
	}
	return 0
}

// ListFiles returns the names of every file on the volume, or nil if the
// volume is not mounted.
func (f *FS) ListFiles() []string {
	names, err := f.session.ListFiles()
	if err != nil {
		return nil
	}
	return names
}
