package fatvol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenIncrementsRefCountAndCloseDecrements(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))

	fd1, err := s.Open("a.txt")
	require.NoError(t, err)
	fd2, err := s.Open("a.txt")
	require.NoError(t, err)
	require.NotEqual(t, fd1, fd2)

	slot, ok := s.dir.findByName("a.txt")
	require.True(t, ok)
	require.EqualValues(t, 2, s.dir.entries[slot].refCnt)

	require.NoError(t, s.Close(fd1))
	require.EqualValues(t, 1, s.dir.entries[slot].refCnt)
	require.NoError(t, s.Close(fd2))
	require.EqualValues(t, 0, s.dir.entries[slot].refCnt)
}

func TestDoubleCloseDoesNotUnderflowRefCount(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	require.NoError(t, s.Close(fd))
	require.ErrorIs(t, s.Close(fd), ErrInvalidDescriptor)

	slot, ok := s.dir.findByName("a.txt")
	require.True(t, ok)
	require.EqualValues(t, 0, s.dir.entries[slot].refCnt)
}

func TestOpenMissingFileFails(t *testing.T) {
	s := newMountedSession(t)
	_, err := s.Open("nope.txt")
	require.ErrorIs(t, err, ErrFileNotFound)
}

func TestLseekRejectsOutOfRangeOffset(t *testing.T) {
	s := newMountedSession(t)
	require.NoError(t, s.Create("a.txt"))
	fd, err := s.Open("a.txt")
	require.NoError(t, err)

	_, err = s.Lseek(fd, -1)
	require.ErrorIs(t, err, ErrInvalidOffset)

	_, err = s.Lseek(fd, 1)
	require.ErrorIs(t, err, ErrInvalidOffset, "file is empty, so any positive offset is out of range")

	off, err := s.Lseek(fd, 0)
	require.NoError(t, err)
	require.EqualValues(t, 0, off)
}

func TestGetFileSizeRequiresValidDescriptor(t *testing.T) {
	s := newMountedSession(t)
	_, err := s.GetFileSize(0)
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}
