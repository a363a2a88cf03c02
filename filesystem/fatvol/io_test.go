package fatvol

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadEmptyFileReturnsEOFImmediately(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	buf := make([]byte, 16)
	n, err := s.Read(fd, buf)
	require.Equal(t, 0, n)
	require.ErrorIs(t, err, io.EOF)
}

func TestWriteThenReadWithinOneBlock(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	want := []byte("the quick brown fox")
	n, err := s.Write(fd, want)
	require.NoError(t, err)
	require.Equal(t, len(want), n)

	_, err = s.Lseek(fd, 0)
	require.NoError(t, err)
	got := make([]byte, len(want))
	n, err = s.Read(fd, got)
	require.True(t, err == nil || err == io.EOF)
	require.Equal(t, len(want), n)
	require.Equal(t, want, got)
}

// TestWriteOverwriteInteriorPreservesNeighboringBytes checks the
// read-modify-write guarantee: overwriting the middle of a block must not
// disturb the bytes on either side of it.
func TestWriteOverwriteInteriorPreservesNeighboringBytes(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	_, err = s.Write(fd, []byte("0123456789"))
	require.NoError(t, err)

	_, err = s.Lseek(fd, 3)
	require.NoError(t, err)
	_, err = s.Write(fd, []byte("XYZ"))
	require.NoError(t, err)

	_, err = s.Lseek(fd, 0)
	require.NoError(t, err)
	got := make([]byte, 10)
	_, err = s.Read(fd, got)
	require.True(t, err == nil || err == io.EOF)
	require.Equal(t, "012XYZ6789", string(got))
}

func TestWriteAppendAtOffsetGrowsSizeOnce(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	_, err = s.Write(fd, []byte("hello"))
	require.NoError(t, err)
	size, err := s.GetFileSize(fd)
	require.NoError(t, err)
	require.Equal(t, 5, size)

	_, err = s.Lseek(fd, 2)
	require.NoError(t, err)
	_, err = s.Write(fd, []byte("XY"))
	require.NoError(t, err)
	size, err = s.GetFileSize(fd)
	require.NoError(t, err)
	require.Equal(t, 5, size, "overwriting within the existing size must not grow it")
}

func TestWriteClampsToMaxFileSize(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	_, err = s.Lseek(fd, 0)
	require.NoError(t, err)
	// The data region holds more than MaxFileSize bytes, so the file can be
	// filled up to the cap: the first write stops half a block short of it,
	// and the second, a whole block long, is clamped to the half block left.
	n, err := s.Write(fd, make([]byte, MaxFileSize-BlockSize/2))
	require.NoError(t, err)
	require.Equal(t, MaxFileSize-BlockSize/2, n)

	big := make([]byte, BlockSize)
	n, err = s.Write(fd, big)
	require.NoError(t, err)
	require.Equal(t, BlockSize/2, n)
	size, err := s.GetFileSize(fd)
	require.NoError(t, err)
	require.Equal(t, MaxFileSize, size)
}

func TestReadRejectsInvalidDescriptor(t *testing.T) {
	s := newMountedSession(t)
	buf := make([]byte, 4)
	_, err := s.Read(0, buf)
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestTruncateRejectsNegativeAndOverlongLength(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	require.ErrorIs(t, s.Truncate(fd, -1), ErrInvalidLength)
	require.ErrorIs(t, s.Truncate(fd, MaxFileSize+1), ErrInvalidLength)
}

func TestTruncateClampsOpenOffset(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)
	_, err = s.Write(fd, []byte("0123456789"))
	require.NoError(t, err)

	require.NoError(t, s.Truncate(fd, 4))
	require.Equal(t, int64(4), s.descriptors[fd].offset)
}
