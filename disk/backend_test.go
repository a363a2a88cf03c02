package disk

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fatvol/fatvol/backend"
	"github.com/fatvol/fatvol/testhelper"
)

// fakeStorage adapts a testhelper.FileImpl (which only stubs reads/writes)
// up to the full backend.Storage surface disk requires, so tests can inject
// I/O failures that are awkward to provoke through a real file.
type fakeStorage struct {
	*testhelper.FileImpl
	writable bool
}

func (f *fakeStorage) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

func (f *fakeStorage) Writable() (backend.WritableFile, error) {
	if !f.writable {
		return nil, backend.ErrIncorrectOpenMode
	}
	return f.FileImpl, nil
}

var errInjected = errors.New("injected backend failure")

func TestReadBlockPropagatesBackendError(t *testing.T) {
	fs := &fakeStorage{FileImpl: &testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			return 0, errInjected
		},
	}}
	d := &Disk{backend: fs, path: "fake"}

	buf := make([]byte, BlockSize)
	err := d.ReadBlock(0, buf)
	require.ErrorIs(t, err, errInjected)
}

func TestReadBlockRejectsShortRead(t *testing.T) {
	fs := &fakeStorage{FileImpl: &testhelper.FileImpl{
		Reader: func(b []byte, offset int64) (int, error) {
			return len(b) - 1, nil
		},
	}}
	d := &Disk{backend: fs, path: "fake"}

	buf := make([]byte, BlockSize)
	require.Error(t, d.ReadBlock(0, buf))
}

func TestWriteBlockRejectsReadOnlyBackend(t *testing.T) {
	fs := &fakeStorage{FileImpl: &testhelper.FileImpl{}, writable: false}
	d := &Disk{backend: fs, path: "fake"}

	buf := make([]byte, BlockSize)
	err := d.WriteBlock(0, buf)
	require.ErrorIs(t, err, backend.ErrIncorrectOpenMode)
}

func TestWriteBlockPropagatesBackendError(t *testing.T) {
	fs := &fakeStorage{FileImpl: &testhelper.FileImpl{
		Writer: func(b []byte, offset int64) (int, error) {
			return 0, errInjected
		},
	}, writable: true}
	d := &Disk{backend: fs, path: "fake"}

	buf := make([]byte, BlockSize)
	err := d.WriteBlock(0, buf)
	require.ErrorIs(t, err, errInjected)
}
