package fatvol

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/fatvol/fatvol/disk"
)

func tempImagePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "volume.img")
}

func TestMountRejectsUnformattedImage(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, disk.Make(path))
	_, err := Mount(path)
	require.ErrorIs(t, err, ErrNotFormatted)
}

func TestMountRejectsMissingImage(t *testing.T) {
	_, err := Mount(filepath.Join(t.TempDir(), "nope.img"))
	require.Error(t, err)
}

func TestUnmountTwiceFails(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))
	s, err := Mount(path)
	require.NoError(t, err)
	require.NoError(t, s.Unmount())
	require.ErrorIs(t, s.Unmount(), ErrNotMounted)
}

func TestOperationsRejectUnmountedSession(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))
	s, err := Mount(path)
	require.NoError(t, err)
	require.NoError(t, s.Unmount())

	require.ErrorIs(t, s.Create("a.txt"), ErrNotMounted)
	_, err = s.Open("a.txt")
	require.ErrorIs(t, err, ErrNotMounted)
}

// TestMountReopenPreservesFiles is the end-to-end persistence scenario from
// spec.md §8: data written before Unmount must read back identically after
// a fresh Mount of the same image.
func TestMountReopenPreservesFiles(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))

	s1, err := Mount(path)
	require.NoError(t, err)
	require.NoError(t, s1.Create("greeting.txt"))
	fd, err := s1.Open("greeting.txt")
	require.NoError(t, err)
	want := []byte("hello, fatvol")
	n, err := s1.Write(fd, want)
	require.NoError(t, err)
	require.Equal(t, len(want), n)
	require.NoError(t, s1.Close(fd))
	require.NoError(t, s1.Unmount())

	s2, err := Mount(path)
	require.NoError(t, err)
	defer s2.Unmount()

	names, err := s2.ListFiles()
	require.NoError(t, err)
	require.Equal(t, []string{"greeting.txt"}, names)

	fd2, err := s2.Open("greeting.txt")
	require.NoError(t, err)
	got := make([]byte, len(want))
	n, err = s2.Read(fd2, got)
	require.True(t, err == nil || err == io.EOF)
	require.Equal(t, len(want), n)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round-tripped content mismatch (-want +got):\n%s", diff)
	}
}

// TestWriteReadAcrossMultipleBlocks exercises a chain long enough to need
// FAT extension mid-write and multiple blocks on read.
func TestWriteReadAcrossMultipleBlocks(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))
	s, err := Mount(path)
	require.NoError(t, err)
	defer s.Unmount()

	require.NoError(t, s.Create("big.bin"))
	fd, err := s.Open("big.bin")
	require.NoError(t, err)

	payload := make([]byte, BlockSize*3+17)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	n, err := s.Write(fd, payload)
	require.NoError(t, err)
	require.Equal(t, len(payload), n)

	_, err = s.Lseek(fd, 0)
	require.NoError(t, err)
	got := make([]byte, len(payload))
	total := 0
	for total < len(got) {
		n, err = s.Read(fd, got[total:])
		total += n
		if err != nil {
			require.ErrorIs(t, err, io.EOF)
			break
		}
	}
	require.Equal(t, payload, got)

	size, err := s.GetFileSize(fd)
	require.NoError(t, err)
	require.Equal(t, len(payload), size)
}

func TestTruncateShrinksAndFreesBlocks(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))
	s, err := Mount(path)
	require.NoError(t, err)
	defer s.Unmount()

	require.NoError(t, s.Create("f.bin"))
	fd, err := s.Open("f.bin")
	require.NoError(t, err)
	_, err = s.Write(fd, make([]byte, BlockSize*2+5))
	require.NoError(t, err)

	require.NoError(t, s.Truncate(fd, BlockSize+1))
	size, err := s.GetFileSize(fd)
	require.NoError(t, err)
	require.Equal(t, BlockSize+1, size)
	slot, ok := s.dir.findByName("f.bin")
	require.True(t, ok)
	require.Equal(t, 2, s.fat.chainLength(s.dir.entries[slot].head), "the third block must be freed")

	require.Error(t, s.Truncate(fd, BlockSize*10))
}

func TestDescriptorsFullRejectsExtraOpen(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))
	s, err := Mount(path)
	require.NoError(t, err)
	defer s.Unmount()

	require.NoError(t, s.Create("f.bin"))
	for i := 0; i < MaxFDs; i++ {
		_, err := s.Open("f.bin")
		require.NoError(t, err)
	}
	_, err = s.Open("f.bin")
	require.ErrorIs(t, err, ErrDescriptorsFull)
}

func TestCheckFDRejectsOutOfRangeDescriptor(t *testing.T) {
	path := tempImagePath(t)
	require.NoError(t, MakeFS(path))
	s, err := Mount(path)
	require.NoError(t, err)
	defer s.Unmount()

	require.ErrorIs(t, s.checkFD(-1), ErrInvalidDescriptor)
	require.ErrorIs(t, s.checkFD(MaxFDs), ErrInvalidDescriptor)
}
