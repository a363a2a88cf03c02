// Package file implements backend.Storage on top of a plain OS file or
// block device.
package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/fatvol/fatvol/backend"
)

type rawBackend struct {
	storage  fs.File
	readOnly bool
}

// backend.Storage interface guard
var _ backend.Storage = rawBackend{}

// New wraps an already-open fs.File as a backend.Storage.
func New(f fs.File, readOnly bool) backend.Storage {
	return rawBackend{storage: f, readOnly: readOnly}
}

// OpenFromPath opens an existing file or block device at pathName as a
// backend.Storage. The path must already exist.
func OpenFromPath(pathName string, readOnly bool) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass a device or file name")
	}
	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s does not exist: %w", pathName, err)
	}

	openMode := os.O_RDONLY
	if !readOnly {
		openMode |= os.O_RDWR
	}

	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open %s with mode %v: %w", pathName, openMode, err)
	}
	logrus.WithField("path", pathName).Debug("backend: opened existing storage")

	return rawBackend{storage: f, readOnly: readOnly}, nil
}

// CreateFromPath creates a new, zero-filled file of exactly size bytes at
// pathName and returns it as a backend.Storage. pathName must not already
// exist.
func CreateFromPath(pathName string, size int64) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass a device or file name")
	}
	if size <= 0 {
		return nil, errors.New("must pass a valid size to create")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create %s: %w", pathName, err)
	}
	if err := f.Truncate(size); err != nil {
		return nil, fmt.Errorf("could not expand %s to size %d: %w", pathName, size, err)
	}
	logrus.WithFields(logrus.Fields{"path": pathName, "size": size}).Debug("backend: created new storage")

	return rawBackend{storage: f, readOnly: false}, nil
}

func (f rawBackend) Sys() (*os.File, error) {
	if osFile, ok := f.storage.(*os.File); ok {
		return osFile, nil
	}
	return nil, backend.ErrNotSuitable
}

func (f rawBackend) Writable() (backend.WritableFile, error) {
	rwFile, ok := f.storage.(backend.WritableFile)
	if !ok {
		return nil, backend.ErrNotSuitable
	}
	if f.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	return rwFile, nil
}

func (f rawBackend) Stat() (fs.FileInfo, error) {
	return f.storage.Stat()
}

func (f rawBackend) Read(b []byte) (int, error) {
	return f.storage.Read(b)
}

func (f rawBackend) Close() error {
	return f.storage.Close()
}

func (f rawBackend) ReadAt(p []byte, off int64) (int, error) {
	readerAt, ok := f.storage.(io.ReaderAt)
	if !ok {
		return 0, backend.ErrNotSuitable
	}
	return readerAt.ReadAt(p, off)
}

func (f rawBackend) Seek(offset int64, whence int) (int64, error) {
	seeker, ok := f.storage.(io.Seeker)
	if !ok {
		return 0, backend.ErrNotSuitable
	}
	return seeker.Seek(offset, whence)
}
